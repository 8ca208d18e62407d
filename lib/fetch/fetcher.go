// Package fetch retrieves class detail pages and hands them to the extractor.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/fiffu/seatwatch/config"
	"github.com/fiffu/seatwatch/lib/extract"
	"github.com/fiffu/seatwatch/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	acceptHeader   = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptLanguage = "vi-VN,vi;q=0.9,en;q=0.8"
)

type Fetcher struct {
	log       *zap.Logger
	transport http.RoundTripper
	userAgent string
	timeout   time.Duration
}

func NewFetcher(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, transport http.RoundTripper) *Fetcher {
	return New(log, transport, cfg.Fetch.UserAgent, cfg.FetchTimeout())
}

func New(log *zap.Logger, transport http.RoundTripper, userAgent string, timeout time.Duration) *Fetcher {
	return &Fetcher{log, transport, userAgent, timeout}
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP error: %d", e.code)
}

// Fetch returns the same result shape for transport, HTTP and parse failures.
// It does not retry; the next sweep does.
func (f *Fetcher) Fetch(ctx context.Context, classURL string) models.ExtractionResult {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	var body string
	err := requests.URL(classURL).
		Transport(f.transport).
		Header("User-Agent", f.userAgent).
		Header("Accept", acceptHeader).
		Header("Accept-Language", acceptLanguage).
		AddValidator(func(res *http.Response) error {
			if res.StatusCode < 200 || res.StatusCode > 299 {
				return &statusError{res.StatusCode}
			}
			return nil
		}).
		ToString(&body).
		Fetch(ctx)

	var statusErr *statusError
	switch {
	case errors.As(err, &statusErr):
		f.log.Sugar().Warnw("Upstream rejected request", "url", classURL, "status", statusErr.code)
		return models.FailedExtraction(statusErr.Error())
	case err != nil:
		f.log.Sugar().Warnw("Failed to fetch class page", "url", classURL, "err", err)
		return models.FailedExtraction(err.Error())
	}

	return extract.Extract(body)
}
