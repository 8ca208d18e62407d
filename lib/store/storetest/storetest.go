// Package storetest opens throwaway in-memory databases for tests.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fiffu/seatwatch/lib/models"
	"github.com/fiffu/seatwatch/lib/store"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a migrated database private to the calling test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// One connection keeps the shared in-memory database alive and serializes writers.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := store.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// SeedTarget creates an active target for user with its state seeded.
func SeedTarget(t testing.TB, st *store.Store, user *models.User, classURL string, remaining int) *models.WatchTarget {
	t.Helper()

	target := &models.WatchTarget{
		UserID:         user.ID,
		ClassURL:       classURL,
		IsActive:       true,
		NotifyTelegram: true,
		NotifyEmail:    true,
	}
	if err := st.CreateTarget(context.Background(), target, remaining, time.Now().UTC()); err != nil {
		t.Fatalf("failed to seed target: %v", err)
	}
	return target
}
