package models

import (
	"database/sql"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email          string `gorm:"unique"`
	TelegramChatID sql.NullString

	WatchTargets []WatchTarget
}

// HasTelegram reports whether the user linked a Telegram chat.
func (u *User) HasTelegram() bool {
	return u.TelegramChatID.Valid && u.TelegramChatID.String != ""
}
