// Package store persists users, watch targets, their polling state and the
// notification log.
package store

import (
	"context"
	"errors"

	"github.com/fiffu/seatwatch/lib/models"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user already exists")
	ErrTargetNotFound  = errors.New("watch target not found")
	ErrDuplicateTarget = errors.New("class is already watched")
)

type Store struct {
	db *gorm.DB
}

func NewStore(lc fx.Lifecycle, db *gorm.DB) *Store {
	return New(db)
}

func New(db *gorm.DB) *Store {
	return &Store{db}
}

// Migrate creates or updates the tables. The connection should be opened with
// TranslateError so unique violations surface as gorm.ErrDuplicatedKey.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.WatchTarget{},
		&models.WatchState{},
		&models.NotificationRecord{},
	)
}

func (s *Store) CreateUser(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{Email: email}
	tx := s.db.WithContext(ctx).Create(user)
	if err := tx.Error; errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrUserExists
	} else if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Store) FindUser(ctx context.Context, userID uint) (*models.User, error) {
	user := &models.User{}
	tx := s.db.WithContext(ctx).First(user, userID)
	if err := tx.Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	} else if err != nil {
		return nil, err
	}
	return user, nil
}

// LinkTelegram stores the chat id for a user; an empty chat id unlinks.
func (s *Store) LinkTelegram(ctx context.Context, userID uint, chatID string) error {
	var value any
	if chatID != "" {
		value = chatID
	}
	tx := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("telegram_chat_id", value)
	if err := tx.Error; err != nil {
		return err
	}
	if tx.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
