// Package cmd wires the sshhub command line: daemon lifecycle
// commands plus the configuration helpers.
package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"sshhub/config"
)

type rootOptions struct {
	configPath string
	debug      bool
}

// resolveConfigPath returns the explicit --config value or the first
// default candidate that exists.
func (o *rootOptions) resolveConfigPath() string {
	if o.configPath != "" {
		return o.configPath
	}
	return config.DefaultPath()
}

func (o *rootOptions) newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if o.debug {
		level = zerolog.DebugLevel
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "sshhub",
		Short:         "Persistent SSH channels hub",
		Long:          "sshhub keeps named SSH tunnels and sessions alive with automatic reconnection.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file path")
	root.PersistentFlags().BoolVarP(&opts.debug, "debug", "d", false, "enable debug logging")
	root.PersistentFlags().SetNormalizeFunc(normalizeFlag)

	root.AddCommand(
		newStartCmd(opts),
		newStopCmd(opts),
		newRestartCmd(opts),
		newStatusCmd(opts),
		newValidateCmd(opts),
		newGenerateCmd(opts),
		newTestCmd(opts),
	)
	return root
}

// normalizeFlag accepts flag names case-insensitively.
func normalizeFlag(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ToLower(name))
}

// Execute runs the CLI with the given context.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}
