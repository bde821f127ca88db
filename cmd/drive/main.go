package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/viktors2008/mediadrive/internal/client/app"
	"github.com/viktors2008/mediadrive/internal/client/config"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	a, err := app.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	if err := a.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}

}
