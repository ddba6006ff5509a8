// Package scheduler runs periodic reconciliation passes. The engine stays a
// batch operation; this is just a timer around it.
package scheduler

import (
	"context"
	"time"

	"github.com/ondasul/airtrack/internal/clock"
	reconciledomain "github.com/ondasul/airtrack/internal/reconcile/domain"
	"go.uber.org/zap"
)

type Config struct {
	// Interval between passes.
	Interval time.Duration
	// Window is how far back each pass looks. Overlap with earlier passes
	// is safe; settled events are skipped.
	Window time.Duration
	// Timeout bounds a single pass.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
	if c.Window <= 0 {
		c.Window = 48 * time.Hour
	}
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Minute
	}
	return c
}

type Scheduler struct {
	cfg    Config
	log    *zap.Logger
	clock  clock.Clock
	engine reconciledomain.Service
}

func New(cfg Config, log *zap.Logger, clk clock.Clock, engine reconciledomain.Service) *Scheduler {
	return &Scheduler{
		cfg:    cfg.withDefaults(),
		log:    log.Named("scheduler"),
		clock:  clk,
		engine: engine,
	}
}

// Run blocks until ctx is canceled, firing one pass per interval.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.log.Info("scheduler started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("window", s.cfg.Window),
	)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.runJob(ctx)
		}
	}
}

// runJob is panic-safe: a failing pass must not take the process down.
func (s *Scheduler) runJob(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("reconcile pass panicked", zap.Any("panic", r))
		}
	}()

	jobCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	now := s.clock.Now()
	result, err := s.engine.Reconcile(jobCtx, reconciledomain.ReconcileRequest{
		From: now.Add(-s.cfg.Window),
		To:   now,
	})
	if err != nil {
		s.log.Error("scheduled reconcile failed", zap.Error(err))
		return
	}
	if result.Scanned > 0 {
		s.log.Info("scheduled reconcile pass",
			zap.Int("scanned", result.Scanned),
			zap.Int("counted", result.Counted),
			zap.Int("errors", result.Errors),
		)
	}
}
