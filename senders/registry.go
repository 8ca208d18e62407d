// Package senders delivers a rendered message over one channel.
package senders

import (
	"context"
	"net/http"

	"github.com/fiffu/seatwatch/config"
	"github.com/fiffu/seatwatch/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Sender interface {
	// Send delivers body to recipient and returns the provider's message id.
	Send(ctx context.Context, subject, body, recipient string) (string, error)
	// Available reports whether the channel is configured at all.
	Available() bool
}

type Registry map[models.Channel]Sender

func NewSenderRegistry(lc fx.Lifecycle, log *zap.Logger, cfg *config.Config, transport http.RoundTripper) Registry {
	base := base{log, cfg, transport}
	return Registry{
		models.ChannelEmail:    &mailgunSender{base: base},
		models.ChannelTelegram: &telegramSender{base: base},
	}
}

// Lookup returns the sender for a channel if it is registered and configured.
func (r Registry) Lookup(channel models.Channel) (Sender, bool) {
	sender, ok := r[channel]
	if !ok || !sender.Available() {
		return nil, false
	}
	return sender, true
}

type base struct {
	log       *zap.Logger
	cfg       *config.Config
	transport http.RoundTripper
}

func (b base) client() *http.Client {
	return &http.Client{Transport: b.transport}
}
