package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:4000", c.APIBaseURL)
	assert.Equal(t, "ws://127.0.0.1:4000/realtime", c.RealtimeURL)
	assert.Equal(t, "drive.db", c.CacheDSN)
	assert.Equal(t, 10, c.ProgressBuffer)
	assert.Equal(t, 10*time.Second, c.CompletedTaskTTL)
	assert.Empty(t, c.SessionToken)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "http://127.0.0.1:4000", cfg.APIBaseURL)
	assert.Equal(t, 10*time.Second, cfg.CompletedTaskTTL)
}

func TestParseEnv_Overrides(t *testing.T) {
	t.Setenv("DRIVE_API_URL", "https://drive.example.com")
	t.Setenv("DRIVE_TOKEN", "tok-123")
	t.Setenv("DRIVE_COMPLETED_TTL", "30s")

	var c Config
	c.LoadDefaults()
	parseEnv(&c)

	assert.Equal(t, "https://drive.example.com", c.APIBaseURL)
	assert.Equal(t, "tok-123", c.SessionToken)
	assert.Equal(t, 30*time.Second, c.CompletedTaskTTL)
	// untouched values keep their defaults
	assert.Equal(t, "drive.db", c.CacheDSN)
}

func TestParseEnv_InvalidDurationPanics(t *testing.T) {
	t.Setenv("DRIVE_COMPLETED_TTL", "abc")

	var c Config
	c.LoadDefaults()
	require.Panics(t, func() { parseEnv(&c) })
}
