package senders

import (
	"context"
	"time"

	"github.com/mailgun/mailgun-go/v4"
)

type mailgunSender struct {
	base
	apiBase string
}

func (e *mailgunSender) Available() bool {
	return e.cfg.Mailgun.Domain != "" && e.cfg.Mailgun.APIKey != ""
}

func (e *mailgunSender) Send(ctx context.Context, subject, body, recipient string) (string, error) {
	mg := mailgun.NewMailgun(e.cfg.Mailgun.Domain, e.cfg.Mailgun.APIKey)
	mg.SetClient(e.client())
	if e.apiBase != "" {
		mg.SetAPIBase(e.apiBase)
	}

	// Create message with empty body first.
	message := mg.NewMessage(e.cfg.Mailgun.SenderFrom, subject, "", recipient)
	// SetHtml with the payload proper. This will assign the MIME type properly.
	message.SetHtml(body)

	timeout := time.Duration(e.cfg.Mailgun.TimeoutSecs) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, id, err := mg.Send(ctx, message)
	if err != nil {
		e.log.Sugar().Warnw("mailgun send failed", "recipient", recipient, "err", err)
	}
	return id, err
}
