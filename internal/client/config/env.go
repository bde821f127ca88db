package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/viktors2008/mediadrive/internal/flagx"
)

// parseEnv overlays Config with values from the environment. An env file
// selected via -e or -env-file is loaded first without overriding variables
// already present in the process environment.
//
// Recognized variables:
//
//	DRIVE_API_URL        base URL of the backend API
//	DRIVE_REALTIME_URL   websocket endpoint
//	DRIVE_TOKEN          session token
//	DRIVE_CACHE_DSN      sqlite DSN of the local cache
//	DRIVE_PROGRESS_BUF   progress offset in percentage points
//	DRIVE_COMPLETED_TTL  completed-task lifetime, e.g. "10s"
func parseEnv(cfg *Config) {
	if envFile := flagx.EnvFileFlags(); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			panic(err)
		}
	}

	if v, ok := os.LookupEnv("DRIVE_API_URL"); ok {
		cfg.APIBaseURL = v
	}
	if v, ok := os.LookupEnv("DRIVE_REALTIME_URL"); ok {
		cfg.RealtimeURL = v
	}
	if v, ok := os.LookupEnv("DRIVE_TOKEN"); ok {
		cfg.SessionToken = v
	}
	if v, ok := os.LookupEnv("DRIVE_CACHE_DSN"); ok {
		cfg.CacheDSN = v
	}
	if v, ok := os.LookupEnv("DRIVE_PROGRESS_BUF"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		cfg.ProgressBuffer = n
	}
	if v, ok := os.LookupEnv("DRIVE_COMPLETED_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		cfg.CompletedTaskTTL = d
	}
}
