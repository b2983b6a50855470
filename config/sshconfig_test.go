package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleSSHConfig = `
# personal hosts
Host web
    HostName web.example.com
    User deploy
    Port 2200

Host db
  HostName db.internal
  User admin
  IdentityFile /home/u/.ssh/id_ed25519

Host bastion-*
    HostName ignored.example.com
    User nobody

Host incomplete
    Port 22

Host *
    User fallback
    Port 2022
`

func writeSSHConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseSSHConfig(t *testing.T) {
	entries, err := ParseSSHConfig(writeSSHConfig(t, sampleSSHConfig))
	if err != nil {
		t.Fatalf("ParseSSHConfig() error = %v", err)
	}
	// web, db, incomplete; the wildcard and * blocks produce none.
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3: %+v", len(entries), entries)
	}

	web := entries[0]
	if web.Host != "web" || web.HostName != "web.example.com" || web.User != "deploy" || web.Port != 2200 {
		t.Errorf("web = %+v", web)
	}

	db := entries[1]
	if db.IdentityFile != "/home/u/.ssh/id_ed25519" {
		t.Errorf("db identity = %q", db.IdentityFile)
	}
	// Host * fills in what the block omitted.
	if db.Port != 2022 {
		t.Errorf("db port = %d, want 2022 from Host * defaults", db.Port)
	}

	incomplete := entries[2]
	if incomplete.User != "fallback" {
		t.Errorf("incomplete user = %q, want fallback from defaults", incomplete.User)
	}
}

func TestParseSSHConfigEqualsSyntax(t *testing.T) {
	entries, err := ParseSSHConfig(writeSSHConfig(t, "Host=alpha\nHostName=a.example.com\nUser=root\n"))
	if err != nil {
		t.Fatalf("ParseSSHConfig() error = %v", err)
	}
	if len(entries) != 1 || entries[0].HostName != "a.example.com" || entries[0].User != "root" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestParseSSHConfigFirstKeyWins(t *testing.T) {
	content := "Host a\nHostName first.example.com\nHostName second.example.com\nUser u\n"
	entries, err := ParseSSHConfig(writeSSHConfig(t, content))
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].HostName != "first.example.com" {
		t.Errorf("HostName = %q, want the first occurrence", entries[0].HostName)
	}
}

func TestFromSSHConfigEntries(t *testing.T) {
	entries := []SSHConfigEntry{
		{Host: "web", HostName: "web.example.com", User: "deploy", Port: 2200},
		{Host: "db", HostName: "db.internal", User: "admin", IdentityFile: "/id"},
		{Host: "skipme", HostName: "x.example.com"}, // no user
		{Host: "noport", HostName: "y.example.com", User: "u"},
	}
	cfg := FromSSHConfigEntries(entries)
	if len(cfg.Hosts) != 3 {
		t.Fatalf("got %d hosts, want 3", len(cfg.Hosts))
	}
	if cfg.Hosts[0].Auth.Type != AuthTypePassword || cfg.Hosts[0].Auth.Password != PasswordPlaceholder {
		t.Errorf("web auth = %+v, want password placeholder", cfg.Hosts[0].Auth)
	}
	if cfg.Hosts[1].Auth.Type != AuthTypeKey || cfg.Hosts[1].Auth.KeyPath != "/id" {
		t.Errorf("db auth = %+v, want key auth", cfg.Hosts[1].Auth)
	}
	if cfg.Hosts[2].Port != DefaultSSHPort {
		t.Errorf("noport port = %d, want %d", cfg.Hosts[2].Port, DefaultSSHPort)
	}
	if !cfg.Reconnection.UseExponential {
		t.Error("generated config should default to exponential backoff")
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	cfg := FromSSHConfigEntries([]SSHConfigEntry{
		{Host: "web", HostName: "web.example.com", User: "deploy", Port: 22},
	})
	path := filepath.Join(t.TempDir(), "sshhub.toml")
	if err := cfg.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "#") {
		t.Error("generated file should start with a header comment")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load(generated) error = %v", err)
	}
	if len(loaded.Hosts) != 1 || loaded.Hosts[0].Host != "web.example.com" {
		t.Errorf("round-tripped hosts = %+v", loaded.Hosts)
	}
}
