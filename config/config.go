package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	Env            string `env:"ENVIRONMENT" envDefault:"development"`
	ServerPort     int    `env:"SERVER_PORT" envDefault:"8080"`
	BasicAuthCreds string `env:"BASIC_AUTH_CREDS"`
	DatabasePath   string `env:"DATABASE_PATH" envDefault:"seatwatch.sqlite"`
	MaxWatchItems  int    `env:"MAX_WATCH_PER_USER" envDefault:"10"`

	Mailgun struct {
		Domain      string `env:"MAILGUN_DOMAIN"`
		APIKey      string `env:"MAILGUN_API_KEY"`
		SenderFrom  string `env:"MAILGUN_SENDER_FROM" envDefault:"MyDTU Slot Monitor <notify@mydtu.indevs.in>"`
		TimeoutSecs int    `env:"MAILGUN_TIMEOUT_SECS" envDefault:"10"`
	}

	Telegram struct {
		BotToken    string `env:"TELEGRAM_BOT_TOKEN"`
		TimeoutSecs int    `env:"TELEGRAM_TIMEOUT_SECS" envDefault:"10"`
	}

	Sweep struct {
		Interval    time.Duration `env:"SWEEP_INTERVAL" envDefault:"10m"`
		Timeout     time.Duration `env:"SWEEP_TIMEOUT" envDefault:"5m"`
		Concurrency int           `env:"SWEEP_CONCURRENCY" envDefault:"5"`
	}

	Fetch struct {
		TimeoutSecs int    `env:"FETCH_TIMEOUT_SECS" envDefault:"20"`
		UserAgent   string `env:"FETCH_USER_AGENT" envDefault:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"`
	}

	log   *zap.Logger
	creds map[string]string
}

func NewConfig(lc fx.Lifecycle, log *zap.Logger) *Config {
	cfg, err := Parse(log)
	if err != nil {
		log.Sugar().Panic(err)
	}
	return cfg
}

// Parse reads the config from the environment. Basic auth credentials fall back
// to admin:password outside of production.
func Parse(log *zap.Logger) (*Config, error) {
	cfg := &Config{log: log}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	creds, err := cfg.parseCreds()
	if err != nil {
		if cfg.Env == "production" {
			return nil, err
		}
		cfg.log.Sugar().Infof("%s (credentials will be set to default outside production)", err)
		creds = map[string]string{"admin": "password"}
	}
	cfg.creds = creds

	if cfg.Sweep.Concurrency < 1 {
		cfg.Sweep.Concurrency = 1
	}
	return cfg, nil
}

func (cfg *Config) GetCreds() map[string]string {
	return cfg.creds
}

func (cfg *Config) FetchTimeout() time.Duration {
	return time.Duration(cfg.Fetch.TimeoutSecs) * time.Second
}

func (cfg *Config) parseCreds() (map[string]string, error) {
	if cfg.BasicAuthCreds == "" {
		return nil, errors.New("BASIC_AUTH_CREDS envvar must be populated")
	}

	creds := strings.Split(cfg.BasicAuthCreds, ",")

	result := make(map[string]string)
	for _, cred := range creds {
		userPass := strings.Split(cred, ":")
		if len(userPass) != 2 {
			return nil, fmt.Errorf("failed to parse '%s', each credential should be delimited by a colon -- user1:pass1,user2:pass2", cred)
		}

		user, pass := userPass[0], userPass[1]
		result[strings.Trim(user, " ")] = strings.Trim(pass, " ")
	}

	return result, nil
}
