package channel

import (
	"net"
	"sync"

	"sshhub/util"
)

// relay copies bytes symmetrically between a local TCP connection and
// an SSH channel stream until either side reaches end-of-stream or
// fails; then both sides are closed.  Relays are fire-and-forget: a
// failure is logged and stays local to this one connection pair, and
// nobody tracks or joins the relay on shutdown, so in-flight transfers
// drain naturally to stream closure.
func (r *Runner) relay(a, b net.Conn) {
	r.metrics.RelayOpened()
	defer r.metrics.RelayClosed()

	var closeOnce sync.Once
	closeBoth := func() {
		a.Close()
		b.Close()
	}
	defer closeOnce.Do(closeBoth)

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	pump := func(dst, src net.Conn) {
		defer wg.Done()
		n, err := util.CopyBuffered(dst, src)
		r.metrics.AddBytes(n)
		errCh <- err
		// First side to finish tears both down so the opposite copy
		// unblocks.
		closeOnce.Do(closeBoth)
	}

	wg.Add(2)
	go pump(a, b)
	go pump(b, a)
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil && !util.IsHarmless(err) {
			r.log.Debug().Err(err).Msg("relay ended with error")
			r.metrics.RecordError(err.Error())
			return
		}
	}
	r.log.Debug().Msg("relay closed")
}
