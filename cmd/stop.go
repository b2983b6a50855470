package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sshhub/control"
	hberr "sshhub/internal/errors"
)

// stopSettle gives the daemon time to tear down its channels and
// remove its run files after acknowledging a stop.
const stopSettle = 600 * time.Millisecond

func newStopCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running hub daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := opts.resolveConfigPath()
			err := control.SendStop(configPath)
			switch {
			case err == nil:
				time.Sleep(stopSettle)
				control.RemoveRunFiles(configPath)
				fmt.Println("sshhub daemon stopped")
				return nil
			case hberr.Is(err, hberr.ErrNoDaemon):
				// Stale run files from a crashed daemon are
				// cleaned up here as well.
				control.RemoveRunFiles(configPath)
				fmt.Println("no daemon running")
				return nil
			default:
				return err
			}
		},
	}
}
