package app

import (
	"database/sql"
	"time"

	"github.com/fiffu/seatwatch/lib/models"
	"github.com/fiffu/seatwatch/lib/sweeper"
)

type UserView struct {
	ID             uint    `json:"id"`
	Email          string  `json:"email"`
	TelegramChatID *string `json:"telegram_chat_id"`
}

func (view UserView) From(entity *models.User) UserView {
	return UserView{
		ID:             entity.ID,
		Email:          entity.Email,
		TelegramChatID: nullable(entity.TelegramChatID),
	}
}

type WatchTargetView struct {
	ID               uint           `json:"id"`
	UserID           uint           `json:"user_id"`
	ClassURL         string         `json:"class_url"`
	ClassID          *string        `json:"class_id"`
	SemesterID       *string        `json:"semester_id"`
	Timespan         *string        `json:"timespan"`
	ClassName        *string        `json:"class_name"`
	ClassCode        *string        `json:"class_code"`
	RegistrationCode *string        `json:"registration_code"`
	Schedule         *string        `json:"schedule"`
	IsActive         bool           `json:"is_active"`
	NotifyTelegram   bool           `json:"notify_telegram"`
	NotifyEmail      bool           `json:"notify_email"`
	State            WatchStateView `json:"state"`
	CreatedAt        string         `json:"created_at"`
}

type WatchStateView struct {
	LastRemaining     int     `json:"last_remaining"`
	LastCheckedAt     *string `json:"last_checked_at"`
	LastEventType     *string `json:"last_event_type"`
	LastEventAt       *string `json:"last_event_at"`
	LastError         *string `json:"last_error"`
	ConsecutiveErrors int     `json:"consecutive_errors"`
}

func (view WatchTargetView) From(entity models.WatchTarget) WatchTargetView {
	return WatchTargetView{
		ID:               entity.ID,
		UserID:           entity.UserID,
		ClassURL:         entity.ClassURL,
		ClassID:          nullable(entity.ClassID),
		SemesterID:       nullable(entity.SemesterID),
		Timespan:         nullable(entity.Timespan),
		ClassName:        nullable(entity.ClassName),
		ClassCode:        nullable(entity.ClassCode),
		RegistrationCode: nullable(entity.RegistrationCode),
		Schedule:         nullable(entity.Schedule),
		IsActive:         entity.IsActive,
		NotifyTelegram:   entity.NotifyTelegram,
		NotifyEmail:      entity.NotifyEmail,
		State: WatchStateView{
			LastRemaining:     entity.State.LastRemaining,
			LastCheckedAt:     isoformat(entity.State.LastCheckedAt),
			LastEventType:     nullable(entity.State.LastEventType),
			LastEventAt:       isoformat(entity.State.LastEventAt),
			LastError:         nullable(entity.State.LastError),
			ConsecutiveErrors: entity.State.ConsecutiveErrors,
		},
		CreatedAt: entity.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type NotificationView struct {
	ID           uint    `json:"id"`
	EventType    string  `json:"event_type"`
	Channel      string  `json:"channel"`
	Remaining    int     `json:"remaining"`
	Status       string  `json:"status"`
	ErrorMessage *string `json:"error_message"`
	SentAt       string  `json:"sent_at"`
}

func (view NotificationView) From(entity models.NotificationRecord) NotificationView {
	return NotificationView{
		ID:           entity.ID,
		EventType:    string(entity.EventType),
		Channel:      string(entity.Channel),
		Remaining:    entity.Remaining,
		Status:       string(entity.Status),
		ErrorMessage: nullable(entity.ErrorMessage),
		SentAt:       entity.SentAt.UTC().Format(time.RFC3339),
	}
}

type ExtractionView struct {
	OK                 bool    `json:"ok"`
	Remaining          *int    `json:"remaining"`
	ClassName          *string `json:"class_name"`
	ClassCode          *string `json:"class_code"`
	RegistrationCode   *string `json:"registration_code"`
	Semester           *string `json:"semester"`
	Schedule           *string `json:"schedule"`
	RegistrationStatus *string `json:"registration_status"`
	Diagnostic         string  `json:"diagnostic,omitempty"`
}

func (view ExtractionView) From(res models.ExtractionResult) ExtractionView {
	return ExtractionView{
		OK:                 res.OK(),
		Remaining:          res.Remaining,
		ClassName:          res.ClassName,
		ClassCode:          res.ClassCode,
		RegistrationCode:   res.RegistrationCode,
		Semester:           res.Semester,
		Schedule:           res.Schedule,
		RegistrationStatus: res.RegistrationStatus,
		Diagnostic:         res.Diagnostic,
	}
}

type SweepView struct {
	RunID               string `json:"run_id"`
	Selected            int    `json:"selected"`
	Checked             int    `json:"checked"`
	Unchanged           int    `json:"unchanged"`
	Events              int    `json:"events"`
	Errored             int    `json:"errored"`
	NotificationsSent   int    `json:"notifications_sent"`
	NotificationsFailed int    `json:"notifications_failed"`
	ElapsedMsecs        int64  `json:"elapsed_msecs"`
}

func (view SweepView) From(summary *sweeper.Summary) SweepView {
	return SweepView{
		RunID:               summary.RunID,
		Selected:            summary.Selected,
		Checked:             summary.Checked,
		Unchanged:           summary.Unchanged,
		Events:              summary.Events,
		Errored:             summary.Errored,
		NotificationsSent:   summary.NotificationsSent,
		NotificationsFailed: summary.NotificationsFail,
		ElapsedMsecs:        summary.Elapsed.Milliseconds(),
	}
}

type Fromable[Entity any, Repr any] interface {
	From(Entity) Repr
}

func FromMany[T any, U Fromable[T, U]](elems []T) []U {
	out := make([]U, len(elems))
	for i, t := range elems {
		var u U
		out[i] = u.From(t)
	}
	return out
}

func nullable(s sql.NullString) *string {
	if s.Valid {
		return &s.String
	}
	return nil
}

func isoformat(t sql.NullTime) *string {
	if t.Valid {
		s := t.Time.UTC().Format(time.RFC3339)
		return &s
	}
	return nil
}
