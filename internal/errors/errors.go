// Package errors provides domain-specific error types for sshhub.
//
// These types carry structured context (channel name, operation, host)
// that helps callers decide how to handle failures and provides better
// diagnostics than plain string wrapping.  Every error maps to a Kind so
// that a future retry policy can distinguish, say, authentication
// failures without the supervision loop having to know concrete types.
package errors

import (
	"errors"
	"fmt"
)

// ── Error kinds ──────────────────────────────────────────────────────

// Kind classifies an error for policy decisions and reporting.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfig
	KindConnection
	KindAuthentication
	KindChannel
	KindRelay
	KindService
	KindControlPlane
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindConnection:
		return "connection"
	case KindAuthentication:
		return "authentication"
	case KindChannel:
		return "channel"
	case KindRelay:
		return "relay"
	case KindService:
		return "service"
	case KindControlPlane:
		return "control-plane"
	default:
		return "unknown"
	}
}

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	// ErrTunnelClosed reports that the SSH connection behind a channel
	// has gone away.
	ErrTunnelClosed = errors.New("ssh connection closed")

	// ErrNoDaemon reports that no running daemon could be reached over
	// the control plane.  Callers fall back to a derived status.
	ErrNoDaemon = errors.New("no daemon running")
)

// ── Structured error types ───────────────────────────────────────────

// ConfigError reports an invalid or unresolvable configuration value.
type ConfigError struct {
	Channel string // channel name, if the error is channel-scoped
	Field   string // offending field, e.g. "hostname", "ports"
	Message string
}

func (e *ConfigError) Error() string {
	msg := "config"
	if e.Channel != "" {
		msg += fmt.Sprintf(": channel %q", e.Channel)
	}
	if e.Field != "" {
		msg += ": " + e.Field
	}
	return msg + ": " + e.Message
}

// SSHError represents a failure while connecting, authenticating, or
// opening/using an SSH channel.
type SSHError struct {
	Op      string // "handshake", "auth", "session", "direct-tcpip", "tcpip-forward"
	Channel string
	Host    string
	Port    int
	Err     error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d (channel %s): %v", e.Op, e.Host, e.Port, e.Channel, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// NetworkError represents a failure in a plain TCP operation performed
// on behalf of a channel or the control plane.
type NetworkError struct {
	Op   string // "listen", "accept", "dial"
	Addr string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServiceError reports orchestrator-level misuse or a total start
// failure.  It is surfaced synchronously to the caller of start/stop.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string { return "service: " + e.Message }

// ── Constructors ─────────────────────────────────────────────────────

// WrapSSH creates an SSHError.
func WrapSSH(op, channel, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Channel: channel, Host: host, Port: port, Err: err}
}

// WrapNet creates a NetworkError.
func WrapNet(op, addr string, err error) *NetworkError {
	return &NetworkError{Op: op, Addr: addr, Err: err}
}

// Servicef creates a ServiceError from a format string.
func Servicef(format string, args ...interface{}) *ServiceError {
	return &ServiceError{Message: fmt.Sprintf(format, args...)}
}

// ── Classification ───────────────────────────────────────────────────

// KindOf walks the error chain and returns the most specific Kind.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ce *ConfigError
	if errors.As(err, &ce) {
		return KindConfig
	}
	var se *SSHError
	if errors.As(err, &se) {
		switch se.Op {
		case "auth":
			return KindAuthentication
		case "handshake":
			return KindConnection
		default:
			return KindChannel
		}
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return KindChannel
	}
	var sve *ServiceError
	if errors.As(err, &sve) {
		return KindService
	}
	if errors.Is(err, ErrNoDaemon) {
		return KindControlPlane
	}
	if errors.Is(err, ErrTunnelClosed) {
		return KindConnection
	}
	return KindUnknown
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use sshhub/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
