package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"AUTH_SECRET": "s3cret"})
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", cfg.Addr())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.Broker.SweepInterval)
	assert.Equal(t, 2*time.Second, cfg.Broker.ProbeTimeout)
	assert.Equal(t, 10, cfg.Broker.ConnBuffer)
	assert.Equal(t, 16, cfg.Broker.SweepConcurrency)
	assert.Equal(t, "chess-broker", cfg.Auth.Issuer)
	assert.Equal(t, 720*time.Hour, cfg.Auth.GuestTTL)
	assert.False(t, cfg.Ngrok.Enabled)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"HOST":                  "0.0.0.0",
		"PORT":                  "9000",
		"LOG_FORMAT":            "json",
		"BROKER_SWEEP_INTERVAL": "30s",
		"BROKER_PROBE_TIMEOUT":  "500ms",
		"BROKER_CONN_BUFFER":    "32",
		"AUTH_SECRET":           "  padded  ",
		"AUTH_COOKIE_SECURE":    "true",
		"NGROK_ENABLED":         "true",
		"NGROK_AUTHTOKEN":       "tok",
		"NGROK_DOMAIN":          "chess.example.org",
	})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Addr())
	assert.Equal(t, 30*time.Second, cfg.Broker.SweepInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.Broker.ProbeTimeout)
	assert.Equal(t, 32, cfg.Broker.ConnBuffer)
	assert.Equal(t, "padded", cfg.Auth.Secret)
	assert.True(t, cfg.Auth.CookieSecure)
	assert.Equal(t, "chess.example.org", cfg.Ngrok.Domain)
}

func TestLoadFrom_SecretFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))

	cfg, err := LoadFrom(map[string]string{
		"AUTH_SECRET":      "from-env",
		"AUTH_SECRET_FILE": path,
	})
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Auth.Secret)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"missing secret":      {},
		"bad port":            {"AUTH_SECRET": "s", "PORT": "70000"},
		"unparsable duration": {"AUTH_SECRET": "s", "BROKER_SWEEP_INTERVAL": "soon"},
		"zero buffer":         {"AUTH_SECRET": "s", "BROKER_CONN_BUFFER": "0"},
		"probe beyond sweep":  {"AUTH_SECRET": "s", "BROKER_PROBE_TIMEOUT": "20s"},
		"unknown log format":  {"AUTH_SECRET": "s", "LOG_FORMAT": "xml"},
		"ngrok without token": {"AUTH_SECRET": "s", "NGROK_ENABLED": "true"},
		"missing secret file": {"AUTH_SECRET_FILE": "/nonexistent/secret"},
		"zero sweep workers":  {"AUTH_SECRET": "s", "BROKER_SWEEP_CONCURRENCY": "0"},
		"negative guest ttl":  {"AUTH_SECRET": "s", "AUTH_GUEST_TTL": "-1h"},
	}
	for name, environ := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(environ)
			assert.Error(t, err)
		})
	}
}

func TestSetAddr(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"AUTH_SECRET": "s"})
	require.NoError(t, err)

	require.NoError(t, cfg.SetAddr(":9090"))
	assert.Equal(t, "", cfg.Host)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, ":9090", cfg.Addr())

	assert.ErrorIs(t, cfg.SetAddr("nonsense"), ErrInvalidConfig)
	assert.ErrorIs(t, cfg.SetAddr("host:abc"), ErrInvalidConfig)
}
