// Package migration applies the schema on startup.
package migration

import (
	catalogdomain "github.com/ondasul/airtrack/internal/catalog/domain"
	clientdomain "github.com/ondasul/airtrack/internal/client/domain"
	contractdomain "github.com/ondasul/airtrack/internal/contract/domain"
	invoicingdomain "github.com/ondasul/airtrack/internal/invoicing/domain"
	playbackdomain "github.com/ondasul/airtrack/internal/playback/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migration",
	fx.Invoke(AutoMigrate),
)

func AutoMigrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running schema migration")
	return db.AutoMigrate(
		&clientdomain.Client{},
		&catalogdomain.AudioFile{},
		&contractdomain.Contract{},
		&contractdomain.ContractItem{},
		&contractdomain.FileGoal{},
		&playbackdomain.PlaybackEvent{},
		&invoicingdomain.InvoiceRecord{},
	)
}
