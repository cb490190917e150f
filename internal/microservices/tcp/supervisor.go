package tcp

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Supervisor owns the current Listener and is what the HTTP layer talks to.
// With Reconnect unset it runs one listener and returns once that listener
// is done, which keeps the single-producer, single-connection lifetime.
// With Reconnect set it binds a fresh listener after each one finishes.
type Supervisor struct {
	cfg       ListenerConfig
	store     *FrameStore
	logger    *slog.Logger
	Reconnect bool
	Delay     time.Duration // wait between listener instances

	mu      sync.RWMutex
	current *Listener
	runs    int
}

func NewSupervisor(cfg ListenerConfig, store *FrameStore, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		cfg:    cfg,
		store:  store,
		logger: logger,
		Delay:  time.Second,
	}
}

// Run blocks until ctx is cancelled or, without Reconnect, until the first
// listener finishes. The returned error is the last bind/accept failure.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		l := NewListener(s.cfg, s.store, s.logger)
		s.mu.Lock()
		s.current = l
		s.runs++
		run := s.runs
		s.mu.Unlock()

		err := l.Serve(ctx)
		if err != nil {
			s.logger.Error("ingest_listener_failed",
				"run", run,
				"error", err.Error(),
			)
		}
		if !s.Reconnect || ctx.Err() != nil {
			return err
		}

		s.logger.Info("ingest_listener_restarting",
			"run", run,
			"delay", s.Delay.String(),
		)
		timer := time.NewTimer(s.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (s *Supervisor) listener() *Listener {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Current exposes the active listener, nil before Run.
func (s *Supervisor) Current() *Listener {
	return s.listener()
}

func (s *Supervisor) SendCommand(cmd Command) error {
	l := s.listener()
	if l == nil {
		return ErrNoProducer
	}
	return l.SendCommand(cmd)
}

func (s *Supervisor) Connected() bool {
	l := s.listener()
	return l != nil && l.Connected()
}

func (s *Supervisor) State() ListenerState {
	l := s.listener()
	if l == nil {
		return StateIdle
	}
	return l.State()
}
