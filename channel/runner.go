package channel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sshhub/internal/metrics"
	"sshhub/internal/retry"
	"sshhub/util"
)

// cyclePause is the fixed pause between supervision cycles.  Exhausting
// a finite retry budget only inserts this pause before an entirely new
// cycle starts with a fresh budget; a channel is never permanently
// stopped by failures, only by cancellation.
const cyclePause = time.Second

// Phase is the supervision phase of a running channel.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseActive
	PhaseBackoff
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseConnecting:
		return "connecting"
	case PhaseActive:
		return "active"
	case PhaseBackoff:
		return "backoff"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Runner keeps one channel connected indefinitely, retrying
// transparently under its backoff policy, until told to stop.
type Runner struct {
	cfg     Config
	policy  retry.Backoff
	log     zerolog.Logger
	metrics *metrics.Collector

	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	phase     Phase
	lastErr   error
	boundPort int // granted remote bind port, remote forwards only
}

// NewRunner builds a runner for the given descriptor.  The policy is a
// pure value; every supervision cycle starts from a fresh retry budget.
func NewRunner(cfg Config, policy retry.Backoff, log zerolog.Logger, m *metrics.Collector) *Runner {
	return &Runner{
		cfg:     cfg,
		policy:  policy,
		log:     log.With().Str("channel", cfg.Name).Str("type", cfg.Kind.Name()).Logger(),
		metrics: m,
		done:    make(chan struct{}),
	}
}

// Name returns the channel name.
func (r *Runner) Name() string { return r.cfg.Name }

// Start launches the supervision loop in the background.  The loop runs
// until ctx is cancelled or Stop is called.
func (r *Runner) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)
	go r.supervise(ctx)
	return nil
}

// Stop cancels the runner and waits for the supervision loop to exit.
// In-flight relays are not waited on; they drain to stream closure on
// their own.
func (r *Runner) Stop() error {
	if r.cancel != nil {
		r.cancel()
	}
	select {
	case <-r.done:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("channel %s: timeout waiting for supervision loop to exit", r.cfg.Name)
	}
}

// Phase returns the current supervision phase.
func (r *Runner) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// LastErr returns the most recent failure observed by the loop.
func (r *Runner) LastErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// BoundPort returns the port the remote host actually granted for a
// remote forward (which may differ from the requested port), or 0.
func (r *Runner) BoundPort() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.boundPort
}

func (r *Runner) setPhase(p Phase) {
	r.mu.Lock()
	r.phase = p
	r.mu.Unlock()
}

func (r *Runner) setLastErr(err error) {
	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()
}

func (r *Runner) setBoundPort(port int) {
	r.mu.Lock()
	r.boundPort = port
	r.mu.Unlock()
}

// supervise runs cycles of {retry connect+serve under a fresh backoff
// budget} separated by a fixed pause, until cancelled.
func (r *Runner) supervise(ctx context.Context) {
	defer close(r.done)
	defer r.setPhase(PhaseStopped)

	for {
		err := r.policy.Do(ctx, func(attempt int) error {
			return r.connectAndServe(ctx, attempt)
		})
		if ctx.Err() != nil {
			r.log.Info().Msg("channel stopped")
			return
		}
		if err != nil {
			r.setLastErr(err)
			r.metrics.RecordError(err.Error())
			r.log.Error().Err(err).Msg("connection cycle failed, will start over")
		} else {
			r.log.Warn().Msg("connection closed, will start over")
		}

		r.setPhase(PhaseBackoff)
		if util.SleepCtx(ctx, cyclePause) != nil {
			r.log.Info().Msg("channel stopped")
			return
		}
	}
}

// connectAndServe performs one full attempt: dial and authenticate,
// open the kind-specific channel, and run its duty loop.  A nil return
// means the duty loop ended cleanly (the connection closed); any error
// is retryable under the cycle's backoff budget.
func (r *Runner) connectAndServe(ctx context.Context, attempt int) error {
	r.setPhase(PhaseConnecting)
	r.metrics.ConnectAttempt()
	r.log.Info().Int("attempt", attempt).Str("host", r.cfg.Addr()).Msg("establishing SSH connection")

	client, err := dialSSH(ctx, &r.cfg)
	if err != nil {
		r.setLastErr(err)
		return err
	}
	defer client.Close()

	r.log.Info().Msg("SSH connection established")
	r.setPhase(PhaseActive)

	// connDone observes the SSH connection dying underneath the duty
	// loop, whatever the kind.
	connDone := make(chan struct{})
	go func() {
		client.Wait() //nolint:errcheck
		close(connDone)
	}()

	switch k := r.cfg.Kind.(type) {
	case LocalForward:
		err = r.serveLocalForward(ctx, client, k, connDone)
	case RemoteForward:
		err = r.serveRemoteForward(ctx, client, k, connDone)
	case Session:
		err = r.serveSession(ctx, client, k, connDone)
	}
	if err != nil {
		r.setLastErr(err)
	}
	return err
}
