package util

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"
)

// DefaultBufSize is the standard buffer size for network I/O (32 KiB).
const DefaultBufSize = 32 * 1024

// bufPool provides reusable byte buffers for relay copy loops, reducing
// GC pressure on hot paths.
var bufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, DefaultBufSize)
		return &buf
	},
}

// CopyBuffered copies src to dst using a pooled buffer and returns the
// number of bytes copied.
func CopyBuffered(dst io.Writer, src io.Reader) (int64, error) {
	buf := bufPool.Get().(*[]byte)
	defer bufPool.Put(buf)
	return io.CopyBuffer(dst, src, *buf)
}

// IsHarmless returns true for errors that are expected when a connection
// is torn down: EOF, closed pipes, use of a closed network connection.
func IsHarmless(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}

// SleepCtx sleeps for at most d.  It returns ctx.Err() if the context is
// cancelled first, nil otherwise.
func SleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
