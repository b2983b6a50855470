package config

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across file parsing, environment loading, and generated configs.

const (
	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultListenHost is the local bind address for local forwards.
	DefaultListenHost = "127.0.0.1"

	// DefaultDestHost is the destination (or local connect) address
	// when a channel does not specify one.
	DefaultDestHost = "127.0.0.1"

	// DefaultChannelType is assumed when a channel omits its type.
	DefaultChannelType = "direct-tcpip"

	// Reconnection defaults: retry forever, exponentially, starting at
	// one second and capped at thirty.
	DefaultMaxRetries       = 0
	DefaultInitialDelaySecs = 1
	DefaultMaxDelaySecs     = 30
)

// Channel type strings accepted in the configuration file.
const (
	TypeLocalForward  = "direct-tcpip"
	TypeRemoteForward = "forwarded-tcpip"
	TypeSession       = "session"
)

// Auth type strings accepted in the configuration file.
const (
	AuthTypePassword = "password"
	AuthTypeKey      = "key"
	AuthTypeAgent    = "agent"
)
