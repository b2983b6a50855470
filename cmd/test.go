package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sshhub/channel"
	"sshhub/config"
	"sshhub/service"
)

func newTestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Probe TCP connectivity of each local forward's listen port",
		Long: "test connects to the listen port of every direct-tcpip channel of a " +
			"running daemon and reports per-channel pass/fail. Remote forwards and " +
			"sessions have no local listener and are skipped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.resolveConfigPath())
			if err != nil {
				return err
			}
			chans, errs := config.BuildChannels(cfg)
			for _, e := range errs {
				fmt.Printf("  skip %-20s %v\n", "-", e)
			}

			failed := 0
			for _, cc := range chans {
				k, ok := cc.Kind.(channel.LocalForward)
				if !ok {
					fmt.Printf("  skip %-20s %s has no local listener\n", cc.Name, cc.Kind.Name())
					continue
				}
				addr := k.ListenAddr()
				if err := service.TestConnection(addr); err != nil {
					failed++
					fmt.Printf("  FAIL %-20s %s: %v\n", cc.Name, addr, err)
					continue
				}
				fmt.Printf("  ok   %-20s %s\n", cc.Name, addr)
			}
			if failed > 0 {
				return fmt.Errorf("%d channel(s) failed the connectivity test", failed)
			}
			return nil
		},
	}
}
