// Package service orchestrates the lifecycle of every configured
// channel: pre-flight validation, launch, status reporting and
// shutdown.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sshhub/channel"
	"sshhub/config"
	hberr "sshhub/internal/errors"
	"sshhub/internal/metrics"
)

const restartPause = time.Second

// Service owns the channel supervisors for one configuration.
type Service struct {
	cfg     *config.AppConfig
	log     zerolog.Logger
	metrics *metrics.Collector

	mu    sync.Mutex
	state State

	rmu     sync.Mutex
	runners []*channel.Runner
}

// New builds a stopped service for the given configuration.
func New(cfg *config.AppConfig, log zerolog.Logger, m *metrics.Collector) *Service {
	return &Service{
		cfg:     cfg,
		log:     log.With().Str("component", "service").Logger(),
		metrics: m,
		state:   Stopped,
	}
}

func (s *Service) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// transition moves from one state to another under a single lock hold,
// so two concurrent callers can never both pass the guard.
func (s *Service) transition(from, to State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return false
	}
	s.state = to
	return true
}

// State returns the current lifecycle phase.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns a snapshot for the control plane.
func (s *Service) Status() Snapshot {
	s.rmu.Lock()
	active := len(s.runners)
	s.rmu.Unlock()
	return Snapshot{
		State:          s.State(),
		ActiveChannels: active,
		TotalChannels:  len(s.cfg.Channels),
	}
}

// Start validates the configuration, checks local listen ports and
// launches a supervisor per channel.  Port conflicts abort the whole
// start; per-channel resolution or launch failures are logged and the
// remaining channels still come up.  The service only enters Failed
// when channels were configured and none of them launched.
func (s *Service) Start(ctx context.Context) error {
	if !s.transition(Stopped, Starting) {
		return hberr.Servicef("cannot start service in state %s", s.State())
	}
	s.log.Info().Int("channels", len(s.cfg.Channels)).Msg("starting service")

	if errs := CheckPorts(config.ListenPorts(s.cfg)); len(errs) > 0 {
		for _, err := range errs {
			s.log.Error().Err(err).Msg("pre-flight check failed")
		}
		s.setState(Failed)
		return hberr.Servicef("pre-flight port check failed: %v", hberr.Join(errs...))
	}

	chans, errs := config.BuildChannels(s.cfg)
	for _, err := range errs {
		s.log.Error().Err(err).Msg("channel configuration rejected")
	}

	var started []*channel.Runner
	for _, cc := range chans {
		r := channel.NewRunner(cc, s.cfg.Reconnection.Policy(), s.log, s.metrics)
		if err := r.Start(ctx); err != nil {
			s.log.Error().Err(err).Str("channel", cc.Name).Msg("channel failed to start")
			continue
		}
		s.log.Info().Str("channel", cc.Name).Str("type", cc.Kind.Name()).Msg("channel started")
		started = append(started, r)
	}

	s.rmu.Lock()
	s.runners = started
	s.rmu.Unlock()

	if len(started) == 0 && len(s.cfg.Channels) > 0 {
		s.setState(Failed)
		return hberr.Servicef("no channels could be started")
	}

	s.setState(Running)
	s.log.Info().
		Int("active", len(started)).
		Int("total", len(s.cfg.Channels)).
		Msg("service running")
	return nil
}

// Stop shuts down every running channel.  Stopping a service that is
// not Running is misuse and leaves the state untouched.  Individual
// channel stop failures are logged but never propagated; a stop of a
// Running service always ends up Stopped.
func (s *Service) Stop() error {
	if !s.transition(Running, Stopping) {
		return hberr.Servicef("cannot stop service in state %s", s.State())
	}
	s.log.Info().Msg("stopping service")

	s.rmu.Lock()
	runners := s.runners
	s.runners = nil
	s.rmu.Unlock()

	for _, r := range runners {
		if err := r.Stop(); err != nil {
			s.log.Warn().Err(err).Str("channel", r.Name()).Msg("channel stop")
		}
	}

	s.setState(Stopped)
	s.log.Info().Msg("service stopped")
	return nil
}

// Restart stops all channels, waits briefly for sockets to settle and
// starts them again.
func (s *Service) Restart(ctx context.Context) error {
	if err := s.Stop(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(restartPause):
	}
	return s.Start(ctx)
}

// Runners returns the live channel supervisors.  Intended for status
// display.
func (s *Service) Runners() []*channel.Runner {
	s.rmu.Lock()
	defer s.rmu.Unlock()
	out := make([]*channel.Runner, len(s.runners))
	copy(out, s.runners)
	return out
}
