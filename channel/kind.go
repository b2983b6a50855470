// Package channel keeps one named SSH channel alive: it owns the
// connect/authenticate/open lifecycle, the kind-specific duty loop, and
// the reconnect supervision around them.
package channel

import (
	"time"

	"sshhub/util"
)

// Kind is the closed set of channel behaviours.  The variant is decided
// once when the runtime descriptor is built from configuration; nothing
// downstream re-interprets type strings.
type Kind interface {
	// Name returns the wire-level channel type for logging and status
	// display ("direct-tcpip", "forwarded-tcpip", "session").
	Name() string
}

// LocalForward binds a local listener and forwards each accepted
// connection to a destination reachable from the remote host (ssh -L).
type LocalForward struct {
	ListenHost string
	ListenPort int
	DestHost   string
	DestPort   int
}

func (LocalForward) Name() string { return "direct-tcpip" }

// ListenAddr returns the local bind address.
func (k LocalForward) ListenAddr() string { return util.FormatAddr(k.ListenHost, k.ListenPort) }

// DestAddr returns the remote destination address.
func (k LocalForward) DestAddr() string { return util.FormatAddr(k.DestHost, k.DestPort) }

// RemoteForward asks the remote host to bind BindPort and forwards
// every inbound connection back to a local destination (ssh -R).
// BindPort 0 lets the remote host choose; the granted port is reported
// by the runner.
type RemoteForward struct {
	BindPort  int
	LocalHost string
	LocalPort int
}

func (RemoteForward) Name() string { return "forwarded-tcpip" }

// LocalAddr returns the local destination address.
func (k RemoteForward) LocalAddr() string { return util.FormatAddr(k.LocalHost, k.LocalPort) }

// Session opens a plain session channel, optionally executing a
// command.  Without a command a PTY is requested and the channel is
// held open; its traffic is drained, not proxied.
type Session struct {
	Command string
}

func (Session) Name() string { return "session" }

// ── Authentication ───────────────────────────────────────────────────

// AuthType selects the credential variant for a host.
type AuthType int

const (
	AuthPassword AuthType = iota
	AuthKey
	AuthAgent
)

// Auth is the resolved credential of a channel's host.
type Auth struct {
	Type       AuthType
	Password   string // AuthPassword
	KeyPath    string // AuthKey
	Passphrase string // AuthKey, optional
}

// ── Runtime descriptor ───────────────────────────────────────────────

// Config is the flattened runtime descriptor for one channel: the host
// fields and the channel kind merged, produced once at orchestrator
// start.  It is immutable after construction.
type Config struct {
	Name string

	// SSH endpoint.
	Host string
	Port int
	User string
	Auth Auth

	// Optional strict host key verification.  Default is to accept any
	// server key.
	HostKeyCheck bool
	KnownHosts   string

	Kind Kind

	// ConnTimeout bounds the TCP dial and SSH handshake (default 30s).
	ConnTimeout time.Duration
}

// Addr returns the SSH endpoint address.
func (c *Config) Addr() string { return util.FormatAddr(c.Host, c.Port) }
