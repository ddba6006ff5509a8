package invoicing

import (
	"github.com/ondasul/airtrack/internal/invoicing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoicing.service",
	fx.Provide(service.NewService),
)
