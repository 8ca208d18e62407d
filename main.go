package main

import (
	"net/http"
	"os"
	"time"

	"github.com/fiffu/seatwatch/app"
	"github.com/fiffu/seatwatch/config"
	"github.com/fiffu/seatwatch/lib"
	"github.com/fiffu/seatwatch/lib/fetch"
	"github.com/fiffu/seatwatch/lib/notify"
	"github.com/fiffu/seatwatch/lib/store"
	"github.com/fiffu/seatwatch/lib/sweeper"
	"github.com/fiffu/seatwatch/senders"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewLogger() (*zap.Logger, error) {
	switch os.Getenv("ENVIRONMENT") {
	default:
		return zap.NewDevelopment()

	case "production":
		logCfg := zap.NewProductionConfig()
		logCfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			t = t.UTC()
			zapcore.ISO8601TimeEncoder(t, enc)
		}
		return logCfg.Build()
	}
}

func main() {
	fx.New(
		fx.Provide(config.NewConfig),
		fx.Provide(NewLogger),

		fx.Provide(app.NewTransport),
		fx.Provide(app.NewDatabase),
		fx.Provide(store.NewStore),

		fx.Provide(senders.NewSenderRegistry),
		fx.Provide(fetch.NewFetcher),
		fx.Provide(notify.NewDispatcher),
		fx.Provide(sweeper.NewSweeper),
		fx.Provide(lib.NewService),
		fx.Provide(app.NewAPI),

		fx.Invoke(func(*http.Server, *sweeper.Sweeper) {}),
	).Run()
}
