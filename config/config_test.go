package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("BASIC_AUTH_CREDS", "")

	cfg, err := Parse(zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, 10, cfg.MaxWatchItems)
	assert.Equal(t, 10*time.Minute, cfg.Sweep.Interval)
	assert.Equal(t, 5, cfg.Sweep.Concurrency)
	assert.Equal(t, 20*time.Second, cfg.FetchTimeout())
	assert.Equal(t, map[string]string{"admin": "password"}, cfg.GetCreds())
}

func TestParseCreds(t *testing.T) {
	t.Setenv("BASIC_AUTH_CREDS", "alice:secret, bob : hunter2")

	cfg, err := Parse(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"alice": "secret", "bob": "hunter2"}, cfg.GetCreds())
}

func TestParseCredsRequiredInProduction(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("BASIC_AUTH_CREDS", "")

	_, err := Parse(zap.NewNop())
	assert.Error(t, err)
}

func TestParseMalformedCreds(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("BASIC_AUTH_CREDS", "alice")

	_, err := Parse(zap.NewNop())
	assert.ErrorContains(t, err, "delimited by a colon")
}

func TestParseSweepOverrides(t *testing.T) {
	t.Setenv("SWEEP_INTERVAL", "30s")
	t.Setenv("SWEEP_CONCURRENCY", "0")

	cfg, err := Parse(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Sweep.Interval)
	assert.Equal(t, 1, cfg.Sweep.Concurrency)
}
