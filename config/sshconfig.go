package config

// sshconfig.go - generating a hosts skeleton from an OpenSSH client
// configuration file (~/.ssh/config).

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	hberr "sshhub/internal/errors"
)

// SSHConfigEntry is one Host block parsed from an OpenSSH config file.
type SSHConfigEntry struct {
	Host         string // alias
	HostName     string
	Port         int
	User         string
	IdentityFile string
}

// DefaultSSHConfigPath returns ~/.ssh/config.
func DefaultSSHConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".ssh", "config")
	}
	return filepath.Join(home, ".ssh", "config")
}

// ParseSSHConfig reads an OpenSSH client configuration and returns one
// entry per concrete Host block.  Wildcard patterns are skipped, except
// that a `Host *` block supplies defaults for the others.  Within a
// block the first occurrence of a key wins, matching OpenSSH.
func ParseSSHConfig(path string) ([]SSHConfigEntry, error) {
	f, err := os.Open(expandTilde(path))
	if err != nil {
		return nil, &hberr.ConfigError{Message: fmt.Sprintf("reading SSH config: %v", err)}
	}
	defer f.Close()

	var (
		entries  []SSHConfigEntry
		current  *SSHConfigEntry
		defaults SSHConfigEntry
		inStar   bool
	)

	flush := func() {
		if inStar {
			defaults = *current
			inStar = false
		} else if current != nil {
			entries = append(entries, *current)
		}
		current = nil
	}

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := splitDirective(line)
		if !ok {
			continue
		}

		if strings.EqualFold(key, "Host") {
			if current != nil {
				flush()
			}
			// Only the first pattern of the block is used.
			name := strings.Fields(value)[0]
			switch {
			case name == "*":
				current = &SSHConfigEntry{}
				inStar = true
			case strings.ContainsAny(name, "*?!"):
				current = nil
			default:
				current = &SSHConfigEntry{Host: name}
			}
			continue
		}
		if current == nil {
			continue
		}

		switch strings.ToLower(key) {
		case "hostname":
			if current.HostName == "" {
				current.HostName = value
			}
		case "user":
			if current.User == "" {
				current.User = value
			}
		case "port":
			if current.Port == 0 {
				if p, err := strconv.Atoi(value); err == nil && p > 0 && p <= 65535 {
					current.Port = p
				}
			}
		case "identityfile":
			if current.IdentityFile == "" {
				current.IdentityFile = expandTilde(value)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &hberr.ConfigError{Message: fmt.Sprintf("reading SSH config: %v", err)}
	}
	if current != nil {
		flush()
	}

	// Overlay Host * defaults.
	for i := range entries {
		if entries[i].Port == 0 {
			entries[i].Port = defaults.Port
		}
		if entries[i].User == "" {
			entries[i].User = defaults.User
		}
		if entries[i].IdentityFile == "" {
			entries[i].IdentityFile = defaults.IdentityFile
		}
	}
	return entries, nil
}

// splitDirective splits "Key value" or "Key=value".
func splitDirective(line string) (key, value string, ok bool) {
	if i := strings.IndexAny(line, " \t="); i > 0 {
		return line[:i], strings.TrimSpace(strings.TrimLeft(line[i:], " \t=")), true
	}
	return "", "", false
}

func expandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}

// PasswordPlaceholder marks generated hosts whose credential the user
// still has to fill in.
const PasswordPlaceholder = "CHANGE_ME"

// FromSSHConfigEntries builds a hosts-only configuration skeleton.
// Entries lacking a hostname or username are skipped.  Hosts with an
// identity file get key auth; the rest get password auth with a
// placeholder secret.
func FromSSHConfigEntries(entries []SSHConfigEntry) *AppConfig {
	cfg := &AppConfig{
		Reconnection: ReconnectionConfig{
			MaxRetries:       DefaultMaxRetries,
			InitialDelaySecs: DefaultInitialDelaySecs,
			MaxDelaySecs:     DefaultMaxDelaySecs,
			UseExponential:   true,
		},
	}

	for _, e := range entries {
		if e.HostName == "" || e.User == "" {
			continue
		}
		auth := AuthConfig{Type: AuthTypePassword, Password: PasswordPlaceholder}
		if e.IdentityFile != "" {
			auth = AuthConfig{Type: AuthTypeKey, KeyPath: e.IdentityFile}
		}
		port := e.Port
		if port == 0 {
			port = DefaultSSHPort
		}
		cfg.Hosts = append(cfg.Hosts, HostConfig{
			Name:     e.Host,
			Host:     e.HostName,
			Port:     port,
			Username: e.User,
			Auth:     auth,
		})
	}
	return cfg
}

// WriteFile serialises the configuration to TOML at path.
func (c *AppConfig) WriteFile(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return &hberr.ConfigError{Message: fmt.Sprintf("serialising config: %v", err)}
	}
	header := "# sshhub configuration - generated from SSH client config.\n" +
		"# Add [[channels]] sections to define port forwarding.\n\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0o600); err != nil {
		return &hberr.ConfigError{Message: fmt.Sprintf("writing config file: %v", err)}
	}
	return nil
}
