package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/chanhduy633/checkout-service/internal/app"
	"github.com/chanhduy633/checkout-service/internal/config"
	"github.com/chanhduy633/checkout-service/internal/logger"
)

func main() {
	slog.SetDefault(logger.NewSlogLogger())

	slog.Info("Starting checkout service...")

	cfg := config.Load()

	application, err := app.New(context.Background(), cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}

	application.Run()
}
