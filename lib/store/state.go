package store

import (
	"context"
	"errors"
	"time"

	"github.com/fiffu/seatwatch/lib/models"
	"gorm.io/gorm"
)

// PatchState applies the patch to one state row in a single UPDATE, so the
// remaining count and event columns never land separately.
func (s *Store) PatchState(ctx context.Context, targetID uint, patch models.StatePatch) error {
	cols := patch.Columns()
	if len(cols) == 0 {
		return nil
	}
	tx := s.db.WithContext(ctx).
		Model(&models.WatchState{}).
		Where("watch_target_id = ?", targetID).
		Updates(cols)
	if err := tx.Error; err != nil {
		return err
	}
	if tx.RowsAffected == 0 {
		return ErrTargetNotFound
	}
	return nil
}

// RecordError bumps the error counter and keeps the last remaining count.
func (s *Store) RecordError(ctx context.Context, targetID uint, message string, checkedAt time.Time) error {
	tx := s.db.WithContext(ctx).
		Model(&models.WatchState{}).
		Where("watch_target_id = ?", targetID).
		Updates(map[string]any{
			"last_error":         message,
			"last_checked_at":    checkedAt,
			"consecutive_errors": gorm.Expr("consecutive_errors + ?", 1),
		})
	if err := tx.Error; err != nil {
		return err
	}
	if tx.RowsAffected == 0 {
		return ErrTargetNotFound
	}
	return nil
}

func (s *Store) FindState(ctx context.Context, targetID uint) (*models.WatchState, error) {
	state := &models.WatchState{}
	tx := s.db.WithContext(ctx).Where("watch_target_id = ?", targetID).Take(state)
	if err := tx.Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTargetNotFound
	} else if err != nil {
		return nil, err
	}
	return state, nil
}
