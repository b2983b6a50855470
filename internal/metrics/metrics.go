// Package metrics provides lightweight counters for tracking runtime
// statistics of a daemon instance.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics across every channel of a daemon.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	relaysActive    atomic.Int64
	relaysTotal     atomic.Int64
	bytesCopied     atomic.Int64
	connectAttempts atomic.Int64
	errorsTotal     atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Relay metrics ────────────────────────────────────────────────────

// RelayOpened increments both the active and total relay counters.
func (c *Collector) RelayOpened() {
	if c == nil {
		return
	}
	c.relaysActive.Add(1)
	c.relaysTotal.Add(1)
}

// RelayClosed decrements the active relay counter.
func (c *Collector) RelayClosed() {
	if c == nil {
		return
	}
	c.relaysActive.Add(-1)
}

// ActiveRelays returns the number of relays currently copying.
func (c *Collector) ActiveRelays() int64 {
	if c == nil {
		return 0
	}
	return c.relaysActive.Load()
}

// AddBytes records n bytes moved through a relay.
func (c *Collector) AddBytes(n int64) {
	if c == nil {
		return
	}
	c.bytesCopied.Add(n)
}

// ── Connection metrics ───────────────────────────────────────────────

// ConnectAttempt records one SSH connection attempt by any channel.
func (c *Collector) ConnectAttempt() {
	if c == nil {
		return
	}
	c.connectAttempts.Add(1)
}

// ConnectAttempts returns the total SSH connection attempt count.
func (c *Collector) ConnectAttempts() int64 {
	if c == nil {
		return 0
	}
	return c.connectAttempts.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	RelaysActive     int64  `json:"relays_active"`
	RelaysTotal      int64  `json:"relays_total"`
	BytesCopied      int64  `json:"bytes_copied"`
	ConnectAttempts  int64  `json:"connect_attempts"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:          time.Since(c.startTime).Truncate(time.Second).String(),
		RelaysActive:    c.relaysActive.Load(),
		RelaysTotal:     c.relaysTotal.Load(),
		BytesCopied:     c.bytesCopied.Load(),
		ConnectAttempts: c.connectAttempts.Load(),
		ErrorsTotal:     c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
