package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sshhub/config"
	"sshhub/control"
	"sshhub/service"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and channel status",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := opts.resolveConfigPath()
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			snap, qerr := control.QueryStatus(configPath)
			if qerr != nil {
				// No daemon answering: report a derived
				// stopped view from the configuration alone.
				snap = service.Snapshot{
					State:          service.Stopped,
					ActiveChannels: 0,
					TotalChannels:  len(cfg.Channels),
				}
			}

			fmt.Printf("State:    %s\n", snap.State)
			fmt.Printf("Channels: %d active / %d configured\n",
				snap.ActiveChannels, snap.TotalChannels)
			printChannelList(cfg)
			return nil
		},
	}
}

// printChannelList shows the configured channels with their type and
// endpoints.
func printChannelList(cfg *config.AppConfig) {
	if len(cfg.Channels) == 0 {
		return
	}
	fmt.Println()
	for _, ch := range cfg.Channels {
		typ := ch.Type
		if typ == "" {
			typ = config.DefaultChannelType
		}
		if ch.Ports != "" {
			fmt.Printf("  %-20s %-16s %s@%s  ports %s\n",
				ch.Name, typ, hostUser(cfg, ch.Hostname), ch.Hostname, ch.Ports)
		} else {
			fmt.Printf("  %-20s %-16s %s@%s\n",
				ch.Name, typ, hostUser(cfg, ch.Hostname), ch.Hostname)
		}
	}
}

func hostUser(cfg *config.AppConfig, hostname string) string {
	if h := cfg.FindHost(hostname); h != nil {
		return h.Username
	}
	return "?"
}
