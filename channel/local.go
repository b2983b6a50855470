package channel

import (
	"context"
	"net"

	"golang.org/x/crypto/ssh"

	hberr "sshhub/internal/errors"
)

// serveLocalForward binds the local listener and forwards every
// accepted connection through a new direct-tcpip channel.  The accept
// loop is the duty loop: it ends on cancellation (nil) or when the
// listener or the SSH connection fails (error, retried by the caller).
func (r *Runner) serveLocalForward(ctx context.Context, client *ssh.Client, k LocalForward, connDone <-chan struct{}) error {
	addr := k.ListenAddr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return hberr.WrapNet("listen", addr, err)
	}
	defer ln.Close()

	r.log.Info().Str("listen", addr).Str("dest", k.DestAddr()).Msg("local listener started, accepting connections")

	// Unblock Accept when the runner is cancelled or the SSH
	// connection dies.
	go func() {
		select {
		case <-ctx.Done():
		case <-connDone:
		}
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			select {
			case <-connDone:
				return hberr.WrapSSH("direct-tcpip", r.cfg.Name, r.cfg.Host, r.cfg.Port, hberr.ErrTunnelClosed)
			default:
				return hberr.WrapNet("accept", addr, err)
			}
		}

		go r.forwardLocal(client, conn, k)
	}
}

// forwardLocal opens a direct-tcpip channel for one accepted connection
// and hands both streams to the relay.  An open failure is logged and
// the accept loop keeps going; it never tears down the channel.
func (r *Runner) forwardLocal(client *ssh.Client, conn net.Conn, k LocalForward) {
	dest := k.DestAddr()
	stream, err := client.Dial("tcp", dest)
	if err != nil {
		r.metrics.RecordError(err.Error())
		r.log.Error().Err(err).Str("dest", dest).Msg("failed to open direct-tcpip channel for new connection")
		conn.Close()
		return
	}

	r.log.Debug().
		Stringer("peer", conn.RemoteAddr()).
		Str("dest", dest).
		Msg("direct-tcpip channel opened for connection")

	r.relay(conn, stream)
}
