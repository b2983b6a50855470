package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"sshhub/control"
	hberr "sshhub/internal/errors"
)

const restartSettle = 700 * time.Millisecond

func newRestartCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Restart the hub daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := opts.resolveConfigPath()
			err := control.SendStop(configPath)
			if err != nil && !hberr.Is(err, hberr.ErrNoDaemon) {
				return err
			}
			if err == nil {
				time.Sleep(restartSettle)
			}
			control.RemoveRunFiles(configPath)
			return spawnDaemon(opts)
		},
	}
}
