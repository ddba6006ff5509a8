package reconcile

import (
	"github.com/ondasul/airtrack/internal/reconcile/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reconcile.engine",
	fx.Provide(service.NewService),
)
