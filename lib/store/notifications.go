package store

import (
	"context"

	"github.com/fiffu/seatwatch/lib/models"
)

func (s *Store) CreateNotification(ctx context.Context, record *models.NotificationRecord) error {
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *Store) ListNotifications(ctx context.Context, targetID uint, limit int) (models.NotificationRecords, error) {
	var records models.NotificationRecords
	tx := s.db.WithContext(ctx).
		Where("watch_target_id = ?", targetID).
		Order("sent_at desc, id desc").
		Limit(limit).
		Find(&records)
	if err := tx.Error; err != nil {
		return nil, err
	}
	return records, nil
}
