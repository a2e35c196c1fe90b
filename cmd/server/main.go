package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/Freeeeeet/clinic_booking/internal/app"
	"github.com/Freeeeeet/clinic_booking/internal/config"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment, cfg.OTel.ServiceName)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting clinic booking service",
		zap.String("environment", cfg.Environment),
		zap.String("timezone", cfg.Timezone),
		zap.Bool("smtp", cfg.MailEnabled()),
		zap.Bool("rabbitmq", cfg.AMQPEnabled()),
		zap.Bool("telegram", cfg.TelegramEnabled()),
	)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}

	if err := a.Run(ctx); err != nil {
		logger.Fatal("Service stopped with error", zap.Error(err))
	}
}
