package config

import (
	"time"

	"github.com/viktors2008/mediadrive/internal/client/api"
	"github.com/viktors2008/mediadrive/internal/client/uploader"
)

// Config holds runtime settings for the drive client.
//
// Fields:
//   - APIBaseURL: base URL of the backend HTTP API.
//   - RealtimeURL: websocket endpoint of the realtime channel.
//   - SessionToken: the session JWT attached as a cookie to every request.
//   - CacheDSN: sqlite DSN of the local cache database.
//   - ProgressBuffer: percentage points held back from raw upload progress.
//   - CompletedTaskTTL: how long finished uploads stay visible.
type Config struct {
	APIBaseURL       string
	RealtimeURL      string
	SessionToken     string
	CacheDSN         string
	ProgressBuffer   int
	CompletedTaskTTL time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:4000"
	c.RealtimeURL = "ws://127.0.0.1:4000/realtime"
	c.CacheDSN = "drive.db"
	c.ProgressBuffer = api.DefaultProgressBuffer
	c.CompletedTaskTTL = uploader.DefaultCompletedTTL
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from the environment (optionally seeded from an env file) and
// command-line flags. Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
