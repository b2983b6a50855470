package metrics

import (
	"strings"
	"sync"
	"testing"
)

func TestNilCollectorIsNoOp(t *testing.T) {
	var c *Collector
	c.RelayOpened()
	c.RelayClosed()
	c.AddBytes(100)
	c.ConnectAttempt()
	c.RecordError("boom")
	if c.ActiveRelays() != 0 || c.ConnectAttempts() != 0 || c.ErrorCount() != 0 {
		t.Error("nil collector should report zeros")
	}
	if s := c.Snapshot(); s.RelaysTotal != 0 {
		t.Error("nil collector snapshot should be zero")
	}
}

func TestRelayCounters(t *testing.T) {
	c := New()
	c.RelayOpened()
	c.RelayOpened()
	if got := c.ActiveRelays(); got != 2 {
		t.Errorf("ActiveRelays() = %d, want 2", got)
	}
	c.RelayClosed()
	if got := c.ActiveRelays(); got != 1 {
		t.Errorf("ActiveRelays() = %d, want 1", got)
	}
	if got := c.Snapshot().RelaysTotal; got != 2 {
		t.Errorf("RelaysTotal = %d, want 2", got)
	}
}

func TestErrorTracking(t *testing.T) {
	c := New()
	c.RecordError("first")
	c.RecordError("second")
	if got := c.ErrorCount(); got != 2 {
		t.Errorf("ErrorCount() = %d, want 2", got)
	}
	s := c.Snapshot()
	if s.LastErrorMessage != "second" {
		t.Errorf("LastErrorMessage = %q, want %q", s.LastErrorMessage, "second")
	}
	if s.LastError == "" {
		t.Error("LastError timestamp should be set")
	}
}

func TestConcurrentUpdates(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RelayOpened()
			c.AddBytes(10)
			c.ConnectAttempt()
			c.RelayClosed()
		}()
	}
	wg.Wait()
	s := c.Snapshot()
	if s.RelaysActive != 0 {
		t.Errorf("RelaysActive = %d, want 0", s.RelaysActive)
	}
	if s.RelaysTotal != 50 || s.BytesCopied != 500 || s.ConnectAttempts != 50 {
		t.Errorf("totals = %d/%d/%d, want 50/500/50",
			s.RelaysTotal, s.BytesCopied, s.ConnectAttempts)
	}
}

func TestJSONOutput(t *testing.T) {
	c := New()
	c.AddBytes(42)
	out := c.JSON()
	if !strings.Contains(out, `"bytes_copied": 42`) {
		t.Errorf("JSON() missing bytes_copied:\n%s", out)
	}
	if strings.Contains(out, "last_error") {
		t.Error("JSON() should omit last_error when none recorded")
	}
}
