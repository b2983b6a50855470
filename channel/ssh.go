package channel

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	hberr "sshhub/internal/errors"
)

const defaultConnTimeout = 30 * time.Second

// dialSSH establishes an authenticated SSH connection for the channel.
// The context cancels both the TCP dial and the handshake; the
// handshake is additionally bounded by the configured connection
// timeout via a socket deadline, cleared once the connection is up.
func dialSSH(ctx context.Context, cfg *Config) (*ssh.Client, error) {
	authMethods, err := buildAuthMethods(&cfg.Auth)
	if err != nil {
		return nil, hberr.WrapSSH("auth", cfg.Name, cfg.Host, cfg.Port, err)
	}

	hkCallback, err := hostKeyCallback(cfg)
	if err != nil {
		return nil, hberr.WrapSSH("handshake", cfg.Name, cfg.Host, cfg.Port, err)
	}

	timeout := cfg.ConnTimeout
	if timeout == 0 {
		timeout = defaultConnTimeout
	}

	clientCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            authMethods,
		HostKeyCallback: hkCallback,
		Timeout:         timeout,
	}

	addr := cfg.Addr()

	// Context-aware TCP dial so a cancelled runner stops waiting.
	dialer := net.Dialer{Timeout: timeout}
	tcpConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, hberr.WrapSSH("handshake", cfg.Name, cfg.Host, cfg.Port, err)
	}

	// NewClientConn has no context awareness and ignores
	// ClientConfig.Timeout, so the handshake against a silent peer
	// would block forever.  A deadline bounds it and a watchdog
	// closes the socket on cancellation to unblock it promptly.
	tcpConn.SetDeadline(time.Now().Add(timeout)) //nolint:errcheck
	handshakeDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			tcpConn.Close()
		case <-handshakeDone:
		}
	}()

	sshConn, chans, reqs, err := ssh.NewClientConn(tcpConn, addr, clientCfg)
	close(handshakeDone)
	if err != nil {
		tcpConn.Close()
		op := "handshake"
		if isAuthFailure(err) {
			op = "auth"
		}
		return nil, hberr.WrapSSH(op, cfg.Name, cfg.Host, cfg.Port, err)
	}
	tcpConn.SetDeadline(time.Time{}) //nolint:errcheck

	return ssh.NewClient(sshConn, chans, reqs), nil
}

// isAuthFailure distinguishes a rejected credential from a transport
// failure.  x/crypto/ssh folds both into the handshake, so the split is
// by error text.
func isAuthFailure(err error) bool {
	return err != nil && strings.Contains(err.Error(), "unable to authenticate")
}

// ── auth builders ────────────────────────────────────────────────────

// buildAuthMethods assembles the SSH authentication method for the
// configured credential.  Key material decoding happens here, on the
// runner's own goroutine, never on a latency-sensitive path.
func buildAuthMethods(a *Auth) ([]ssh.AuthMethod, error) {
	switch a.Type {
	case AuthPassword:
		return []ssh.AuthMethod{ssh.Password(a.Password)}, nil
	case AuthKey:
		m, err := publicKeyAuth(a.KeyPath, a.Passphrase)
		if err != nil {
			return nil, err
		}
		return []ssh.AuthMethod{m}, nil
	case AuthAgent:
		m, err := agentAuth()
		if err != nil {
			return nil, err
		}
		return []ssh.AuthMethod{m}, nil
	default:
		return nil, fmt.Errorf("unsupported auth type %d", a.Type)
	}
}

func publicKeyAuth(keyPath, passphrase string) (ssh.AuthMethod, error) {
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("reading key %s: %w", keyPath, err)
	}

	var signer ssh.Signer
	if passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(data, []byte(passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(data)
	}
	if err != nil {
		if _, ok := err.(*ssh.PassphraseMissingError); ok {
			return nil, fmt.Errorf("key %s is encrypted and no passphrase is configured", keyPath)
		}
		return nil, fmt.Errorf("parsing key %s: %w", keyPath, err)
	}
	return ssh.PublicKeys(signer), nil
}

func agentAuth() (ssh.AuthMethod, error) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, fmt.Errorf("SSH_AUTH_SOCK is not set")
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, fmt.Errorf("connecting to agent at %s: %w", sock, err)
	}
	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers), nil
}

// ── host-key verification ────────────────────────────────────────────

func hostKeyCallback(cfg *Config) (ssh.HostKeyCallback, error) {
	if !cfg.HostKeyCheck {
		//nolint:gosec // accept-any is the configured default
		return ssh.InsecureIgnoreHostKey(), nil
	}

	khFile := cfg.KnownHosts
	if khFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating home directory: %w", err)
		}
		khFile = filepath.Join(home, ".ssh", "known_hosts")
	}

	cb, err := knownhosts.New(khFile)
	if err != nil {
		return nil, fmt.Errorf("loading known_hosts from %s: %w", khFile, err)
	}
	return cb, nil
}
