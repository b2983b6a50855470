// Package config defines the on-disk configuration model for sshhub
// and resolves it into flattened runtime channel descriptors.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	hberr "sshhub/internal/errors"
	"sshhub/internal/retry"
)

// HostConfig is an SSH endpoint identity referenced by channels.
type HostConfig struct {
	// Name is the identifier channels use to reference this host.
	Name     string     `mapstructure:"name" toml:"name"`
	Host     string     `mapstructure:"host" toml:"host"`
	Port     int        `mapstructure:"port" toml:"port"`
	Username string     `mapstructure:"username" toml:"username"`
	Auth     AuthConfig `mapstructure:"auth" toml:"auth"`

	// Optional strict host key verification against a known_hosts
	// file.  Default is to accept any server key.
	HostKeyCheck bool   `mapstructure:"host_key_check" toml:"host_key_check,omitempty"`
	KnownHosts   string `mapstructure:"known_hosts" toml:"known_hosts,omitempty"`
}

// AuthConfig selects the credential for a host: "password", "key", or
// "agent".
type AuthConfig struct {
	Type       string `mapstructure:"type" toml:"type"`
	Password   string `mapstructure:"password" toml:"password,omitempty"`
	KeyPath    string `mapstructure:"key_path" toml:"key_path,omitempty"`
	Passphrase string `mapstructure:"passphrase" toml:"passphrase,omitempty"`
}

// ChannelSpec is a named tunnel definition referencing a host.
type ChannelSpec struct {
	Name     string `mapstructure:"name" toml:"name"`
	Hostname string `mapstructure:"hostname" toml:"hostname"`

	// Type: "direct-tcpip" (local forward, like ssh -L),
	// "forwarded-tcpip" (remote forward, like ssh -R), or "session".
	// Default: "direct-tcpip".
	Type string `mapstructure:"type" toml:"type,omitempty"`

	// Ports is "<local>:<dest>".  For direct-tcpip: local listen port
	// and remote destination port.  For forwarded-tcpip: local connect
	// port and remote bind port (0 lets the host choose).  Ignored for
	// sessions.
	Ports string `mapstructure:"ports" toml:"ports,omitempty"`

	// DestHost: destination on the remote side (direct-tcpip) or the
	// local host to connect to (forwarded-tcpip).  Default 127.0.0.1.
	DestHost string `mapstructure:"dest_host" toml:"dest_host,omitempty"`

	// ListenHost is the local bind address for direct-tcpip.  Use
	// "0.0.0.0" to accept from any interface.  Default 127.0.0.1.
	ListenHost string `mapstructure:"listen_host" toml:"listen_host,omitempty"`

	// Command to execute on a session channel; empty keeps a bare PTY
	// session open.
	Command string `mapstructure:"command" toml:"command,omitempty"`
}

// ReconnectionConfig drives the per-channel backoff policy.
type ReconnectionConfig struct {
	// MaxRetries per supervision cycle; 0 = unlimited.  Exhausting a
	// finite budget only pauses the channel before a fresh cycle; it
	// never stops it for good.
	MaxRetries       int  `mapstructure:"max_retries" toml:"max_retries"`
	InitialDelaySecs int  `mapstructure:"initial_delay_secs" toml:"initial_delay_secs"`
	MaxDelaySecs     int  `mapstructure:"max_delay_secs" toml:"max_delay_secs"`
	UseExponential   bool `mapstructure:"use_exponential_backoff" toml:"use_exponential_backoff"`
}

// Policy converts the reconnection settings into a backoff value.
func (rc ReconnectionConfig) Policy() retry.Backoff {
	mode := retry.ModeFixed
	if rc.UseExponential {
		mode = retry.ModeExponential
	}
	return retry.Backoff{
		Mode:         mode,
		InitialDelay: time.Duration(rc.InitialDelaySecs) * time.Second,
		MaxDelay:     time.Duration(rc.MaxDelaySecs) * time.Second,
		MaxAttempts:  rc.MaxRetries,
		Jitter:       true,
	}
}

// AppConfig is the whole configuration file.
type AppConfig struct {
	Hosts        []HostConfig       `mapstructure:"hosts" toml:"hosts"`
	Channels     []ChannelSpec      `mapstructure:"channels" toml:"channels,omitempty"`
	Reconnection ReconnectionConfig `mapstructure:"reconnection" toml:"reconnection"`
}

// FindHost returns the host with the given name, or nil.
func (c *AppConfig) FindHost(name string) *HostConfig {
	for i := range c.Hosts {
		if c.Hosts[i].Name == name {
			return &c.Hosts[i]
		}
	}
	return nil
}

// ── Port pair parsing ────────────────────────────────────────────────

// PortPair is a parsed "<local>:<dest>" spec.
type PortPair struct {
	Local int
	Dest  int
}

// ParsePortPair parses "local:dest".  Both parts are required; dest may
// be 0 (host-chosen remote bind).
func ParsePortPair(s string) (PortPair, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return PortPair{}, fmt.Errorf("invalid ports %q: expected \"local:dest\" (e.g. \"8080:80\")", s)
	}
	local, err := strconv.Atoi(parts[0])
	if err != nil || local < 1 || local > 65535 {
		return PortPair{}, fmt.Errorf("invalid local port %q", parts[0])
	}
	dest, err := strconv.Atoi(parts[1])
	if err != nil || dest < 0 || dest > 65535 {
		return PortPair{}, fmt.Errorf("invalid destination port %q", parts[1])
	}
	return PortPair{Local: local, Dest: dest}, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks hosts for completeness.  Channel problems are not
// checked here: they surface per-channel at resolution time so one bad
// channel never blocks the rest.
func (c *AppConfig) Validate() error {
	if len(c.Hosts) == 0 {
		return &hberr.ConfigError{Field: "hosts", Message: "at least one host is required"}
	}
	seen := make(map[string]bool, len(c.Hosts))
	for _, h := range c.Hosts {
		if h.Name == "" {
			return &hberr.ConfigError{Field: "hosts.name", Message: "host name is required"}
		}
		if seen[h.Name] {
			return &hberr.ConfigError{Field: "hosts.name", Message: fmt.Sprintf("duplicate host %q", h.Name)}
		}
		seen[h.Name] = true
		if h.Host == "" {
			return &hberr.ConfigError{Field: "hosts.host", Message: fmt.Sprintf("host %q: address is required", h.Name)}
		}
		if h.Username == "" {
			return &hberr.ConfigError{Field: "hosts.username", Message: fmt.Sprintf("host %q: username is required", h.Name)}
		}
		switch h.Auth.Type {
		case AuthTypePassword:
			if h.Auth.Password == "" {
				return &hberr.ConfigError{Field: "hosts.auth.password", Message: fmt.Sprintf("host %q: password is required", h.Name)}
			}
		case AuthTypeKey:
			if h.Auth.KeyPath == "" {
				return &hberr.ConfigError{Field: "hosts.auth.key_path", Message: fmt.Sprintf("host %q: key_path is required", h.Name)}
			}
		case AuthTypeAgent:
		default:
			return &hberr.ConfigError{
				Field:   "hosts.auth.type",
				Message: fmt.Sprintf("host %q: unsupported auth type %q (want password, key, or agent)", h.Name, h.Auth.Type),
			}
		}
	}
	return nil
}
