package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SweepFunc is the unit of work the sweeper runs on every tick. The
// escalation service provides one that evaluates every billable member.
type SweepFunc func(ctx context.Context) error

// SweeperConfig holds escalation sweeper configuration
type SweeperConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

// DefaultSweeperConfig returns default sweeper configuration
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval: 6 * time.Hour,
		Timeout:  10 * time.Minute,
	}
}

// Sweeper runs a periodic background sweep. One sweep runs at a time;
// a tick that arrives while a sweep is still running is skipped.
type Sweeper struct {
	config SweeperConfig
	sweep  SweepFunc
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	sweeping  bool
}

// NewSweeper creates a new sweeper instance
func NewSweeper(config SweeperConfig, sweep SweepFunc, logger *zap.Logger) (*Sweeper, error) {
	if config.Interval <= 0 || config.Timeout <= 0 {
		return nil, ErrInvalidConfig
	}
	return &Sweeper{
		config: config,
		sweep:  sweep,
		logger: logger,
	}, nil
}

// Start starts the sweeper. The first sweep runs immediately.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Escalation sweeper started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("timeout", s.config.Timeout),
	)

	return nil
}

// Stop gracefully stops the sweeper
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Escalation sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Escalation sweeper stop timed out")
		return ctx.Err()
	}
}

// TriggerNow runs a sweep outside the regular schedule
func (s *Sweeper) TriggerNow(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSweeperNotRunning
	}
	s.mu.Unlock()
	return s.runSweep(ctx)
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	if err := s.runSweep(ctx); err != nil && err != ErrSweepInProgress {
		s.logger.Error("Initial sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.runSweep(ctx); err != nil {
				if err == ErrSweepInProgress {
					s.logger.Warn("Sweep tick skipped, previous sweep still running")
					continue
				}
				s.logger.Error("Sweep failed", zap.Error(err))
			}
		}
	}
}

func (s *Sweeper) runSweep(ctx context.Context) error {
	s.mu.Lock()
	if s.sweeping {
		s.mu.Unlock()
		return ErrSweepInProgress
	}
	s.sweeping = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sweeping = false
		s.mu.Unlock()
	}()

	sweepCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	started := time.Now()
	err := s.sweep(sweepCtx)
	if err != nil {
		return err
	}

	s.logger.Info("Sweep completed", zap.Duration("elapsed", time.Since(started)))
	return nil
}
