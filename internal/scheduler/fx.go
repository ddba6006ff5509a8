package scheduler

import (
	"context"

	"github.com/ondasul/airtrack/internal/clock"
	"github.com/ondasul/airtrack/internal/config"
	reconciledomain "github.com/ondasul/airtrack/internal/reconcile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("scheduler",
	fx.Provide(func(cfg config.Config, log *zap.Logger, clk clock.Clock, engine reconciledomain.Service) *Scheduler {
		return New(Config{
			Interval: cfg.ReconcileInterval,
			Window:   cfg.ReconcileWindow,
			Timeout:  cfg.ReconcileTimeout,
		}, log, clk, engine)
	}),
	fx.Invoke(registerLifecycle),
)

func registerLifecycle(lc fx.Lifecycle, s *Scheduler) {
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer close(done)
				s.Run(runCtx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
			}
			return nil
		},
	})
}
