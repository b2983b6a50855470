package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"sshhub/config"
	"sshhub/control"
	"sshhub/internal/metrics"
	"sshhub/service"
)

// spawnSettle gives a freshly spawned daemon time to write its run
// files before the parent reports success.
const spawnSettle = 800 * time.Millisecond

func newStartCmd(opts *rootOptions) *cobra.Command {
	var daemonize bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the hub service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if daemonize {
				return spawnDaemon(opts)
			}
			return runDaemon(cmd.Context(), opts)
		},
	}
	cmd.Flags().BoolVarP(&daemonize, "daemon", "D", false, "detach and run in the background")
	return cmd
}

// spawnDaemon re-executes the binary as a foreground start, detached
// from the current terminal.
func spawnDaemon(opts *rootOptions) error {
	configPath := opts.resolveConfigPath()
	if _, err := control.QueryStatus(configPath); err == nil {
		return fmt.Errorf("daemon already running (config %s)", configPath)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}
	args := []string{"start"}
	if opts.configPath != "" {
		args = append(args, "--config", opts.configPath)
	}
	if opts.debug {
		args = append(args, "--debug")
	}

	child := exec.Command(exe, args...)
	child.Stdin = nil
	child.Stdout = nil
	child.Stderr = nil
	if err := child.Start(); err != nil {
		return fmt.Errorf("spawning daemon: %w", err)
	}
	if err := child.Process.Release(); err != nil {
		return fmt.Errorf("detaching daemon: %w", err)
	}

	time.Sleep(spawnSettle)
	if _, err := control.QueryStatus(configPath); err != nil {
		return fmt.Errorf("daemon did not come up; run start without --daemon to see errors")
	}
	fmt.Println("sshhub daemon started")
	return nil
}

// runDaemon is the foreground daemon loop: start the service, serve
// the control plane, shut everything down on stop or signal.
func runDaemon(ctx context.Context, opts *rootOptions) error {
	configPath := opts.resolveConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := opts.newLogger()
	m := metrics.New()
	svc := service.New(cfg, log, m)
	defer func() {
		log.Debug().RawJSON("metrics", []byte(m.JSON())).Msg("runtime metrics")
	}()

	ctx, shutdown := context.WithCancel(ctx)
	defer shutdown()

	if err := svc.Start(ctx); err != nil {
		return err
	}

	srv := control.NewServer(svc, log, configPath, shutdown)
	if err := srv.Listen(); err != nil {
		svc.Stop()
		return err
	}

	err = srv.Serve(ctx)
	svc.Stop()
	return err
}
