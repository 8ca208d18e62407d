package app

import (
	"github.com/fiffu/seatwatch/config"
	"github.com/fiffu/seatwatch/lib/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func NewDatabase(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Sugar().Panicw("failed to connect database", "path", cfg.DatabasePath, "err", err)
	}
	log.Info("Database started")

	log.Info("Starting migrations")
	if err := store.Migrate(db); err != nil {
		log.Sugar().Panicw("failed to migrate database", "err", err)
	}
	return db
}
