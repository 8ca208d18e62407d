package models

import (
	"database/sql"
	"time"
)

type Channel string

const (
	ChannelTelegram Channel = "telegram"
	ChannelEmail    Channel = "email"
)

type DeliveryStatus string

const (
	DeliverySuccess DeliveryStatus = "success"
	DeliveryFail    DeliveryStatus = "fail"
)

type NotificationRecord struct {
	ID            uint      `gorm:"primaryKey"`
	WatchTargetID uint      `gorm:"index;not null"`
	EventType     EventType `gorm:"not null"`
	Channel       Channel   `gorm:"not null"`
	Remaining     int       `gorm:"not null"`
	Status        DeliveryStatus
	ErrorMessage  sql.NullString
	SentAt        time.Time `gorm:"index;not null"`
}

type NotificationRecords []NotificationRecord
