package channel

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"

	hberr "sshhub/internal/errors"
)

// sessionIdleTick is how often an open session channel wakes to check
// for cancellation.
const sessionIdleTick = 30 * time.Second

// serveSession opens a session channel and keeps it alive.  With a
// configured command the command is started; otherwise a PTY is
// requested and the bare channel is held open.  Session output is
// drained into the debug log; nothing is proxied to a local terminal.
// The duty loop idles until cancellation (nil) or until the session or
// SSH connection ends (error, retried by the caller).
func (r *Runner) serveSession(ctx context.Context, client *ssh.Client, k Session, connDone <-chan struct{}) error {
	sess, err := client.NewSession()
	if err != nil {
		return hberr.WrapSSH("session", r.cfg.Name, r.cfg.Host, r.cfg.Port, err)
	}
	defer sess.Close()

	// Drain whatever the server sends over the session.
	sess.Stdout = &logWriter{log: r.log}
	sess.Stderr = &logWriter{log: r.log}

	sessDone := make(chan error, 1)
	if k.Command != "" {
		if err := sess.Start(k.Command); err != nil {
			return hberr.WrapSSH("session", r.cfg.Name, r.cfg.Host, r.cfg.Port, err)
		}
		r.log.Info().Str("command", k.Command).Msg("session command started")
		go func() { sessDone <- sess.Wait() }()
	} else {
		if err := sess.RequestPty("xterm", 24, 80, ssh.TerminalModes{}); err != nil {
			return hberr.WrapSSH("session", r.cfg.Name, r.cfg.Host, r.cfg.Port, err)
		}
		r.log.Info().Msg("session channel ready")
	}

	ticker := time.NewTicker(sessionIdleTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sessDone:
			if err != nil {
				return hberr.WrapSSH("session", r.cfg.Name, r.cfg.Host, r.cfg.Port, err)
			}
			// Command finished; the cycle ends and supervision
			// reconnects after the pause.
			return nil
		case <-connDone:
			return hberr.WrapSSH("session", r.cfg.Name, r.cfg.Host, r.cfg.Port, hberr.ErrTunnelClosed)
		case <-ticker.C:
			r.log.Debug().Msg("session idle")
		}
	}
}

// logWriter discards session traffic into the debug log.
type logWriter struct {
	log zerolog.Logger
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.log.Debug().Bytes("data", p).Msg("session output")
	return len(p), nil
}
