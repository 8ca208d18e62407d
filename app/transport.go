package app

import (
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewTransport is the round tripper shared by the fetcher and the senders.
func NewTransport(lc fx.Lifecycle, log *zap.Logger) http.RoundTripper {
	return &transport{http.DefaultTransport, log}
}

type transport struct {
	base http.RoundTripper
	log  *zap.Logger
}

func (tpt *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := tpt.base.RoundTrip(req)
	elapsed := int(time.Since(start).Milliseconds())

	if err != nil {
		tpt.log.Sugar().Debugw("Outbound request failed",
			"method", req.Method, "host", req.URL.Host, "elapsed_msecs", elapsed, "err", err)
		return resp, err
	}
	tpt.log.Sugar().Debugw("Outbound request",
		"method", req.Method, "host", req.URL.Host, "status", resp.StatusCode, "elapsed_msecs", elapsed)
	return resp, nil
}
