package config

import (
	"flag"
	"os"
	"time"

	"github.com/viktors2008/mediadrive/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the backend API (default from Config)
//	-r string   websocket endpoint of the realtime channel
//	-t string   session token
//	-d string   sqlite DSN of the local cache database
//	-b int      progress offset in percentage points
//	-i int      completed-task lifetime in seconds
//
// Note: The function filters os.Args to only include the flags it knows
// about, using flagx.FilterArgs, to avoid interference with other
// components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-r", "-t", "-d", "-b", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "base URL of the backend API")
	fs.StringVar(&cfg.RealtimeURL, "r", cfg.RealtimeURL, "websocket endpoint of the realtime channel")
	fs.StringVar(&cfg.SessionToken, "t", cfg.SessionToken, "session token")
	fs.StringVar(&cfg.CacheDSN, "d", cfg.CacheDSN, "sqlite DSN of the local cache database")
	fs.IntVar(&cfg.ProgressBuffer, "b", cfg.ProgressBuffer, "progress offset in percentage points")
	completedTTL := fs.Int("i", int(cfg.CompletedTaskTTL.Seconds()), "completed-task lifetime (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.CompletedTaskTTL = time.Duration(*completedTTL) * time.Second
}
