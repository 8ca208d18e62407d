package store

import (
	"context"
	"errors"
	"time"

	"github.com/fiffu/seatwatch/lib/models"
	"gorm.io/gorm"
)

func (s *Store) withTargetJoins(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.WatchTarget{}).
		InnerJoins("User").
		InnerJoins("State")
}

// ActiveTargetsInBatches walks every active target with its state and owner.
// Each batch is handed to fn; an error from fn stops the walk.
func (s *Store) ActiveTargetsInBatches(ctx context.Context, batchSize int, fn func(models.WatchTargets) error) error {
	var targets models.WatchTargets
	tx := s.withTargetJoins(ctx).
		Where("watch_targets.is_active = ?", true).
		FindInBatches(&targets, batchSize, func(tx *gorm.DB, batch int) error {
			return fn(targets)
		})
	return tx.Error
}

func (s *Store) FindTarget(ctx context.Context, userID, targetID uint) (*models.WatchTarget, error) {
	target := &models.WatchTarget{}
	tx := s.withTargetJoins(ctx).
		Where("watch_targets.user_id = ?", userID).
		Where("watch_targets.id = ?", targetID).
		First(target)
	if err := tx.Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTargetNotFound
	} else if err != nil {
		return nil, err
	}
	return target, nil
}

func (s *Store) ListTargets(ctx context.Context, userID uint) (models.WatchTargets, error) {
	var targets models.WatchTargets
	tx := s.withTargetJoins(ctx).
		Where("watch_targets.user_id = ?", userID).
		Order("watch_targets.created_at desc").
		Find(&targets)
	if err := tx.Error; err != nil {
		return nil, err
	}
	return targets, nil
}

func (s *Store) CountTargets(ctx context.Context, userID uint) (int64, error) {
	var count int64
	tx := s.db.WithContext(ctx).
		Model(&models.WatchTarget{}).
		Where("user_id = ?", userID).
		Count(&count)
	return count, tx.Error
}

func (s *Store) TargetExists(ctx context.Context, userID uint, classURL string) (bool, error) {
	var count int64
	tx := s.db.WithContext(ctx).
		Model(&models.WatchTarget{}).
		Where("user_id = ? AND class_url = ?", userID, classURL).
		Count(&count)
	return count > 0, tx.Error
}

// CreateTarget inserts the target and its seeded state together.
func (s *Store) CreateTarget(ctx context.Context, target *models.WatchTarget, remaining int, checkedAt time.Time) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("User", "State").Create(target).Error; err != nil {
			return err
		}
		target.State = models.WatchState{
			WatchTargetID: target.ID,
			LastRemaining: remaining,
		}
		target.State.LastCheckedAt.Time, target.State.LastCheckedAt.Valid = checkedAt, true
		return tx.Create(&target.State).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateTarget
	}
	return err
}

func (s *Store) UpdateTargetURL(ctx context.Context, targetID uint, classURL string) error {
	tx := s.db.WithContext(ctx).
		Model(&models.WatchTarget{}).
		Where("id = ?", targetID).
		Update("class_url", classURL)
	return tx.Error
}

func (s *Store) PatchTarget(ctx context.Context, targetID uint, patch models.TargetPatch) error {
	cols := patch.Columns()
	if len(cols) == 0 {
		return nil
	}
	tx := s.db.WithContext(ctx).
		Model(&models.WatchTarget{}).
		Where("id = ?", targetID).
		Updates(cols)
	if err := tx.Error; err != nil {
		return err
	}
	if tx.RowsAffected == 0 {
		return ErrTargetNotFound
	}
	return nil
}

// DeleteTarget removes an owned target along with its state and notification log.
func (s *Store) DeleteTarget(ctx context.Context, userID, targetID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		owned := tx.Model(&models.WatchTarget{}).
			Where("id = ? AND user_id = ?", targetID, userID).
			Count(&count)
		if err := owned.Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrTargetNotFound
		}

		if err := tx.Where("watch_target_id = ?", targetID).Delete(&models.NotificationRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("watch_target_id = ?", targetID).Delete(&models.WatchState{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.WatchTarget{}, targetID).Error
	})
}
