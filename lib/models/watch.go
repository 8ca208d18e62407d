package models

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
)

type WatchTarget struct {
	gorm.Model
	UserID   uint   `gorm:"uniqueIndex:idx_user_class_url;not null"`
	ClassURL string `gorm:"uniqueIndex:idx_user_class_url;not null"` // Canonical form, see urls.Normalize

	ClassID    sql.NullString
	SemesterID sql.NullString
	Timespan   sql.NullString

	ClassName        sql.NullString
	ClassCode        sql.NullString
	RegistrationCode sql.NullString
	Schedule         sql.NullString

	IsActive       bool `gorm:"index;not null"`
	NotifyTelegram bool `gorm:"not null"`
	NotifyEmail    bool `gorm:"not null"`

	User  User
	State WatchState `gorm:"foreignKey:WatchTargetID"`
}

type WatchTargets []WatchTarget

// DisplayName is the label used in notifications.
func (w *WatchTarget) DisplayName() string {
	switch {
	case w.ClassName.Valid && w.ClassName.String != "":
		return w.ClassName.String
	case w.ClassCode.Valid && w.ClassCode.String != "":
		return w.ClassCode.String
	default:
		return "Lớp học"
	}
}

type WatchState struct {
	WatchTargetID     uint `gorm:"primaryKey;autoIncrement:false"`
	LastRemaining     int  `gorm:"not null;default:0"`
	LastCheckedAt     sql.NullTime
	LastEventType     sql.NullString
	LastEventAt       sql.NullTime
	LastError         sql.NullString
	ConsecutiveErrors int `gorm:"not null;default:0"`
}

// StatePatch names the WatchState columns to change. Nil fields are left alone.
type StatePatch struct {
	Remaining   *int
	CheckedAt   *time.Time
	Event       EventType
	EventAt     *time.Time
	Error       *string
	ClearError  bool
	ResetErrors bool
}

// Columns turns the patch into a column map for a single UPDATE.
func (p StatePatch) Columns() map[string]any {
	cols := make(map[string]any)
	if p.Remaining != nil {
		cols["last_remaining"] = *p.Remaining
	}
	if p.CheckedAt != nil {
		cols["last_checked_at"] = *p.CheckedAt
	}
	if p.Event != EventNone {
		cols["last_event_type"] = string(p.Event)
		if p.EventAt != nil {
			cols["last_event_at"] = *p.EventAt
		}
	}
	switch {
	case p.ClearError:
		cols["last_error"] = nil
	case p.Error != nil:
		cols["last_error"] = *p.Error
	}
	if p.ResetErrors {
		cols["consecutive_errors"] = 0
	}
	return cols
}

// TargetPatch names the WatchTarget columns to change. Nil fields are left alone.
type TargetPatch struct {
	IsActive       *bool
	NotifyTelegram *bool
	NotifyEmail    *bool

	ClassName        *string
	ClassCode        *string
	RegistrationCode *string
	Schedule         *string
}

func (p TargetPatch) Columns() map[string]any {
	cols := make(map[string]any)
	setBool := func(col string, v *bool) {
		if v != nil {
			cols[col] = *v
		}
	}
	setString := func(col string, v *string) {
		if v != nil {
			cols[col] = *v
		}
	}
	setBool("is_active", p.IsActive)
	setBool("notify_telegram", p.NotifyTelegram)
	setBool("notify_email", p.NotifyEmail)
	setString("class_name", p.ClassName)
	setString("class_code", p.ClassCode)
	setString("registration_code", p.RegistrationCode)
	setString("schedule", p.Schedule)
	return cols
}

// DescriptivePatch keeps whatever the extractor found and leaves the rest.
func DescriptivePatch(res ExtractionResult) TargetPatch {
	return TargetPatch{
		ClassName:        res.ClassName,
		ClassCode:        res.ClassCode,
		RegistrationCode: res.RegistrationCode,
		Schedule:         res.Schedule,
	}
}
