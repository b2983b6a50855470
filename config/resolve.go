package config

import (
	"fmt"

	"sshhub/channel"
	hberr "sshhub/internal/errors"
)

// BuildChannels resolves every channel spec against its host and
// returns the flattened runtime descriptors.  Resolution failures are
// collected per channel: an unresolvable channel contributes nothing
// but never blocks the others.  No network I/O happens here.
func BuildChannels(cfg *AppConfig) ([]channel.Config, []error) {
	var (
		out  []channel.Config
		errs []error
	)

	for _, spec := range cfg.Channels {
		desc, err := resolveChannel(cfg, &spec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, desc)
	}
	return out, errs
}

func resolveChannel(cfg *AppConfig, spec *ChannelSpec) (channel.Config, error) {
	host := cfg.FindHost(spec.Hostname)
	if host == nil {
		return channel.Config{}, &hberr.ConfigError{
			Channel: spec.Name,
			Field:   "hostname",
			Message: fmt.Sprintf("references unknown host %q", spec.Hostname),
		}
	}

	kind, err := resolveKind(spec)
	if err != nil {
		return channel.Config{}, err
	}

	port := host.Port
	if port == 0 {
		port = DefaultSSHPort
	}

	return channel.Config{
		Name:         spec.Name,
		Host:         host.Host,
		Port:         port,
		User:         host.Username,
		Auth:         resolveAuth(&host.Auth),
		HostKeyCheck: host.HostKeyCheck,
		KnownHosts:   host.KnownHosts,
		Kind:         kind,
	}, nil
}

func resolveKind(spec *ChannelSpec) (channel.Kind, error) {
	typ := spec.Type
	if typ == "" {
		typ = DefaultChannelType
	}

	destHost := spec.DestHost
	if destHost == "" {
		destHost = DefaultDestHost
	}

	switch typ {
	case TypeSession:
		return channel.Session{Command: spec.Command}, nil

	case TypeRemoteForward:
		pair, err := requirePorts(spec)
		if err != nil {
			return nil, err
		}
		return channel.RemoteForward{
			BindPort:  pair.Dest,
			LocalHost: destHost,
			LocalPort: pair.Local,
		}, nil

	case TypeLocalForward:
		pair, err := requirePorts(spec)
		if err != nil {
			return nil, err
		}
		if pair.Dest == 0 {
			return nil, &hberr.ConfigError{
				Channel: spec.Name,
				Field:   "ports",
				Message: "destination port is required for direct-tcpip",
			}
		}
		listenHost := spec.ListenHost
		if listenHost == "" {
			listenHost = DefaultListenHost
		}
		return channel.LocalForward{
			ListenHost: listenHost,
			ListenPort: pair.Local,
			DestHost:   destHost,
			DestPort:   pair.Dest,
		}, nil

	default:
		return nil, &hberr.ConfigError{
			Channel: spec.Name,
			Field:   "type",
			Message: fmt.Sprintf("unsupported channel type %q", typ),
		}
	}
}

func requirePorts(spec *ChannelSpec) (PortPair, error) {
	if spec.Ports == "" {
		return PortPair{}, &hberr.ConfigError{
			Channel: spec.Name,
			Field:   "ports",
			Message: "ports \"local:dest\" is required",
		}
	}
	pair, err := ParsePortPair(spec.Ports)
	if err != nil {
		return PortPair{}, &hberr.ConfigError{
			Channel: spec.Name,
			Field:   "ports",
			Message: err.Error(),
		}
	}
	return pair, nil
}

func resolveAuth(a *AuthConfig) channel.Auth {
	switch a.Type {
	case AuthTypeKey:
		return channel.Auth{Type: channel.AuthKey, KeyPath: a.KeyPath, Passphrase: a.Passphrase}
	case AuthTypeAgent:
		return channel.Auth{Type: channel.AuthAgent}
	default:
		return channel.Auth{Type: channel.AuthPassword, Password: a.Password}
	}
}

// ListenPorts collects the local listen port of every local-forward
// channel whose ports parse, for the orchestrator's pre-flight probe.
func ListenPorts(cfg *AppConfig) []int {
	var out []int
	for _, spec := range cfg.Channels {
		typ := spec.Type
		if typ == "" {
			typ = DefaultChannelType
		}
		if typ != TypeLocalForward || spec.Ports == "" {
			continue
		}
		pair, err := ParsePortPair(spec.Ports)
		if err != nil {
			continue
		}
		out = append(out, pair.Local)
	}
	return out
}
