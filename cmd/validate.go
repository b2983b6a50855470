package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sshhub/config"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := opts.resolveConfigPath()
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if _, errs := config.BuildChannels(cfg); len(errs) > 0 {
				for _, e := range errs {
					fmt.Printf("  error: %v\n", e)
				}
				return fmt.Errorf("%d invalid channel(s) in %s", len(errs), configPath)
			}
			fmt.Printf("%s: %d host(s), %d channel(s), configuration OK\n",
				configPath, len(cfg.Hosts), len(cfg.Channels))
			return nil
		},
	}
}
