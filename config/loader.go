package config

// loader.go - configuration loading with viper.
//
// Precedence order (highest wins):
//   1. Environment variables with the SSHHUB_ prefix
//   2. The TOML configuration file
//   3. Defaults (defaults.go)

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	hberr "sshhub/internal/errors"
)

// fileBaseName is the config file looked for in the working directory.
const fileBaseName = "sshhub.toml"

// Load reads and validates the configuration file at path.
func Load(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix("SSHHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("reconnection.max_retries", DefaultMaxRetries)
	v.SetDefault("reconnection.initial_delay_secs", DefaultInitialDelaySecs)
	v.SetDefault("reconnection.max_delay_secs", DefaultMaxDelaySecs)
	v.SetDefault("reconnection.use_exponential_backoff", true)

	if err := v.ReadInConfig(); err != nil {
		return nil, &hberr.ConfigError{Message: fmt.Sprintf("reading %s: %v", path, err)}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &hberr.ConfigError{Message: fmt.Sprintf("parsing %s: %v", path, err)}
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	for i := range cfg.Hosts {
		if cfg.Hosts[i].Port == 0 {
			cfg.Hosts[i].Port = DefaultSSHPort
		}
	}
	if cfg.Reconnection.InitialDelaySecs == 0 {
		cfg.Reconnection.InitialDelaySecs = DefaultInitialDelaySecs
	}
	if cfg.Reconnection.MaxDelaySecs == 0 {
		cfg.Reconnection.MaxDelaySecs = DefaultMaxDelaySecs
	}
}

// DefaultPathCandidates returns the config file locations in lookup
// order: sshhub.toml in the working directory, then the per-user
// config directory.
func DefaultPathCandidates() []string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	candidates := []string{filepath.Join(cwd, fileBaseName)}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "sshhub", "config.toml"))
	}
	return candidates
}

// DefaultPath returns the first existing candidate, or the first
// candidate when none exists yet.
func DefaultPath() string {
	candidates := DefaultPathCandidates()
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return candidates[0]
}
