package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"dpt/internal/app"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (defaults to the executable directory, then ./config.yaml)")
	flag.Parse()

	cfg, paths, logger, err := app.Bootstrap(*configPath)
	if err != nil {
		slog.Error("Failed to start", slog.String("error", err.Error()))
		os.Exit(1)
	}

	application, err := app.NewApplication(context.Background(), cfg, paths, logger)
	if err != nil {
		logger.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
