// Package notify turns detected seat events into channel deliveries and
// records every attempt.
package notify

import (
	"context"
	"database/sql"
	"time"

	"github.com/fiffu/seatwatch/lib/models"
	"github.com/fiffu/seatwatch/lib/store"
	"github.com/fiffu/seatwatch/senders"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Recorder interface {
	CreateNotification(ctx context.Context, record *models.NotificationRecord) error
}

// Outcome counts delivery attempts for one event.
type Outcome struct {
	Sent   int
	Failed int
}

type Dispatcher struct {
	log      *zap.Logger
	recorder Recorder
	senders  senders.Registry
}

func NewDispatcher(lc fx.Lifecycle, log *zap.Logger, st *store.Store, registry senders.Registry) *Dispatcher {
	return New(log, st, registry)
}

func New(log *zap.Logger, recorder Recorder, registry senders.Registry) *Dispatcher {
	return &Dispatcher{log, recorder, registry}
}

type delivery struct {
	channel   models.Channel
	recipient string
}

// deliveries lists the channels this target should hear on. A channel is only
// included when the target enables it, the owner can receive on it and a
// sender is configured.
func (d *Dispatcher) deliveries(target *models.WatchTarget) []delivery {
	var out []delivery
	if target.NotifyTelegram && target.User.HasTelegram() {
		if _, ok := d.senders.Lookup(models.ChannelTelegram); ok {
			out = append(out, delivery{models.ChannelTelegram, target.User.TelegramChatID.String})
		}
	}
	if target.NotifyEmail && target.User.Email != "" {
		if _, ok := d.senders.Lookup(models.ChannelEmail); ok {
			out = append(out, delivery{models.ChannelEmail, target.User.Email})
		}
	}
	return out
}

// Dispatch sends the event over every eligible channel. Delivery and
// bookkeeping failures are logged and counted, never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, target *models.WatchTarget, event models.EventType, remaining int) Outcome {
	var outcome Outcome
	if event == models.EventNone {
		return outcome
	}

	msg := message{target, event, remaining}
	for _, dl := range d.deliveries(target) {
		sender, _ := d.senders.Lookup(dl.channel)

		var err error
		if dl.channel == models.ChannelTelegram {
			_, err = sender.Send(ctx, "", msg.Telegram(), dl.recipient)
		} else {
			_, err = sender.Send(ctx, msg.Subject(), msg.Body(), dl.recipient)
		}

		record := &models.NotificationRecord{
			WatchTargetID: target.ID,
			EventType:     event,
			Channel:       dl.channel,
			Remaining:     remaining,
			Status:        models.DeliverySuccess,
			SentAt:        time.Now().UTC(),
		}
		if err != nil {
			outcome.Failed++
			record.Status = models.DeliveryFail
			record.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
			d.log.Sugar().Warnw("Notification failed",
				"target_id", target.ID, "channel", dl.channel, "event", event, "err", err)
		} else {
			outcome.Sent++
		}

		if err := d.recorder.CreateNotification(ctx, record); err != nil {
			d.log.Sugar().Errorw("Failed to record notification",
				"target_id", target.ID, "channel", dl.channel, "err", err)
		}
	}
	return outcome
}
