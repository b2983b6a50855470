package channel

import (
	"bytes"
	"io"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"sshhub/internal/metrics"
	"sshhub/internal/retry"
)

func testRunner(t *testing.T, m *metrics.Collector) *Runner {
	t.Helper()
	cfg := Config{
		Name: "test",
		Host: "127.0.0.1",
		Port: 22,
		User: "u",
		Auth: Auth{Type: AuthPassword, Password: "x"},
		Kind: LocalForward{ListenHost: "127.0.0.1", ListenPort: 0, DestHost: "127.0.0.1", DestPort: 80},
	}
	return NewRunner(cfg, retry.Default(), zerolog.Nop(), m)
}

func TestRelayBridgesBothDirections(t *testing.T) {
	side1a, side1b := net.Pipe()
	side2a, side2b := net.Pipe()

	r := testRunner(t, metrics.New())
	done := make(chan struct{})
	go func() {
		r.relay(side1a, side2a)
		close(done)
	}()

	// side1b -> relay -> side2b
	go side1b.Write([]byte("ping"))
	buf := make([]byte, 4)
	if _, err := io.ReadFull(side2b, buf); err != nil {
		t.Fatalf("reading forwarded data: %v", err)
	}
	if !bytes.Equal(buf, []byte("ping")) {
		t.Errorf("forwarded %q, want %q", buf, "ping")
	}

	// side2b -> relay -> side1b
	go side2b.Write([]byte("pong"))
	if _, err := io.ReadFull(side1b, buf); err != nil {
		t.Fatalf("reading reverse data: %v", err)
	}
	if !bytes.Equal(buf, []byte("pong")) {
		t.Errorf("reversed %q, want %q", buf, "pong")
	}

	// Closing one endpoint tears the whole relay down.
	side1b.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not terminate after endpoint closure")
	}
	if _, err := side2b.Read(buf); err == nil {
		t.Error("opposite endpoint should be closed after relay teardown")
	}
}

func TestRelayMetrics(t *testing.T) {
	m := metrics.New()
	r := testRunner(t, m)

	side1a, side1b := net.Pipe()
	side2a, side2b := net.Pipe()
	done := make(chan struct{})
	go func() {
		r.relay(side1a, side2a)
		close(done)
	}()

	go func() {
		side1b.Write([]byte("hello"))
		side1b.Close()
	}()
	io.Copy(io.Discard, side2b)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not terminate")
	}

	s := m.Snapshot()
	if s.RelaysTotal != 1 || s.RelaysActive != 0 {
		t.Errorf("relays = %d total / %d active, want 1/0", s.RelaysTotal, s.RelaysActive)
	}
	if s.BytesCopied != 5 {
		t.Errorf("BytesCopied = %d, want 5", s.BytesCopied)
	}
}
