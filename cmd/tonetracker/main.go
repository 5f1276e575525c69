package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"tonetracker/internal/app"
	"tonetracker/internal/config"
	"tonetracker/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application := app.New(cfg, logger)

	var err error
	if len(os.Args) > 1 && os.Args[1] == "rescore" {
		err = application.Rescore(ctx)
	} else {
		err = application.Run(ctx)
	}
	if err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
