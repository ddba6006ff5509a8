package playback

import (
	"github.com/ondasul/airtrack/internal/playback/service"
	"go.uber.org/fx"
)

var Module = fx.Module("playback.service",
	fx.Provide(service.NewService),
)
