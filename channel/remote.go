package channel

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	hberr "sshhub/internal/errors"
)

const localDialTimeout = 5 * time.Second

// serveRemoteForward requests a remote bind and bridges every inbound
// forwarded connection back to the local destination.  The duty loop is
// the accept loop over server-pushed channels; it ends on cancellation
// (nil) or when the SSH connection dies (error, retried by the caller).
func (r *Runner) serveRemoteForward(ctx context.Context, client *ssh.Client, k RemoteForward, connDone <-chan struct{}) error {
	ln, granted, err := listenRemoteForward(client, "", k.BindPort)
	if err != nil {
		return hberr.WrapSSH("tcpip-forward", r.cfg.Name, r.cfg.Host, r.cfg.Port, err)
	}
	defer ln.Close()

	// The host may grant a different port than requested (0 means
	// host-chosen); report what was actually bound.
	r.setBoundPort(granted)
	r.log.Info().
		Int("remote_port", granted).
		Str("local", k.LocalAddr()).
		Msg("remote forward established")

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
			return hberr.WrapSSH("tcpip-forward", r.cfg.Name, r.cfg.Host, r.cfg.Port, hberr.ErrTunnelClosed)
		}

		r.log.Debug().Stringer("origin", conn.RemoteAddr()).Msg("inbound forwarded connection")
		go r.forwardRemote(conn, k)
	}
}

// forwardRemote connects one server-pushed channel to the local
// destination and hands both streams to the relay.  A dial failure is
// local to that connection.
func (r *Runner) forwardRemote(stream net.Conn, k RemoteForward) {
	local := k.LocalAddr()
	conn, err := net.DialTimeout("tcp", local, localDialTimeout)
	if err != nil {
		r.metrics.RecordError(err.Error())
		r.log.Error().Err(err).Str("local", local).Msg("failed to reach local destination for forwarded connection")
		stream.Close()
		return
	}

	r.relay(conn, stream)
}

// ── forwarded-tcpip plumbing ─────────────────────────────────────────
//
// ssh.Client.Listen keys incoming forwarded-tcpip channels by the exact
// bind address it sent, and hides the port the server actually granted
// when a concrete port was requested.  The listener below registers its
// own forwarded-tcpip handler, issues the tcpip-forward request itself,
// accepts every pushed channel unconditionally, and surfaces the
// granted port.

// channelForwardMsg is the wire format for the "tcpip-forward" and
// "cancel-tcpip-forward" global requests (RFC 4254 §7.1).
type channelForwardMsg struct {
	Addr string
	Port uint32
}

// forwardedTCPPayload is the channel-open payload for "forwarded-tcpip"
// (RFC 4254 §7.2).
type forwardedTCPPayload struct {
	Addr       string
	Port       uint32
	OriginAddr string
	OriginPort uint32
}

// listenRemoteForward sends a tcpip-forward request and returns a
// net.Listener fed by server-pushed channels, plus the port the server
// granted (meaningful when bindPort is 0).
func listenRemoteForward(client *ssh.Client, bindAddr string, bindPort int) (net.Listener, int, error) {
	// Register the channel handler BEFORE the request so no pushed
	// channel can slip past.
	incoming := client.HandleChannelOpen("forwarded-tcpip")
	if incoming == nil {
		return nil, 0, fmt.Errorf("forwarded-tcpip handler already registered")
	}

	msg := channelForwardMsg{Addr: bindAddr, Port: uint32(bindPort)}
	ok, reply, err := client.SendRequest("tcpip-forward", true, ssh.Marshal(&msg))
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, fmt.Errorf("tcpip-forward request denied by peer")
	}

	granted := grantedPort(bindPort, reply)

	return &remoteForwardListener{
		client:   client,
		bindAddr: bindAddr,
		bindPort: uint32(granted),
		incoming: incoming,
		done:     make(chan struct{}),
	}, granted, nil
}

// grantedPort resolves the effective bind port from the tcpip-forward
// reply.  The server echoes its chosen port only when 0 was requested
// (RFC 4254 §7.1).
func grantedPort(requested int, reply []byte) int {
	if requested != 0 || len(reply) < 4 {
		return requested
	}
	var m struct{ Port uint32 }
	if err := ssh.Unmarshal(reply, &m); err != nil {
		return requested
	}
	return int(m.Port)
}

// remoteForwardListener implements net.Listener over forwarded-tcpip
// channels, matching every pushed channel regardless of the bind
// address the server reports.
type remoteForwardListener struct {
	client   *ssh.Client
	bindAddr string
	bindPort uint32
	incoming <-chan ssh.NewChannel
	done     chan struct{}
	once     sync.Once
}

func (l *remoteForwardListener) Accept() (net.Conn, error) {
	select {
	case <-l.done:
		return nil, io.EOF
	case newCh, ok := <-l.incoming:
		if !ok {
			return nil, io.EOF
		}
		ch, reqs, err := newCh.Accept()
		if err != nil {
			return nil, fmt.Errorf("channel accept: %w", err)
		}
		go ssh.DiscardRequests(reqs)

		var raddr net.Addr = &net.TCPAddr{}
		var payload forwardedTCPPayload
		if err := ssh.Unmarshal(newCh.ExtraData(), &payload); err == nil {
			raddr = &net.TCPAddr{
				IP:   net.ParseIP(payload.OriginAddr),
				Port: int(payload.OriginPort),
			}
		}
		return &chanConn{Channel: ch, raddr: raddr}, nil
	}
}

func (l *remoteForwardListener) Close() error {
	l.once.Do(func() {
		close(l.done)
		// Best-effort cancel; the connection may already be gone.
		msg := channelForwardMsg{Addr: l.bindAddr, Port: l.bindPort}
		l.client.SendRequest("cancel-tcpip-forward", true, ssh.Marshal(&msg)) //nolint:errcheck
	})
	return nil
}

func (l *remoteForwardListener) Addr() net.Addr {
	return &net.TCPAddr{Port: int(l.bindPort)}
}

// chanConn wraps an ssh.Channel to satisfy net.Conn.
type chanConn struct {
	ssh.Channel
	raddr net.Addr
}

func (c *chanConn) LocalAddr() net.Addr                { return &net.TCPAddr{} }
func (c *chanConn) RemoteAddr() net.Addr               { return c.raddr }
func (c *chanConn) SetDeadline(_ time.Time) error      { return nil }
func (c *chanConn) SetReadDeadline(_ time.Time) error  { return nil }
func (c *chanConn) SetWriteDeadline(_ time.Time) error { return nil }
