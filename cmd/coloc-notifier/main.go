package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"

	"coloc/internal/amqp"
	"coloc/internal/config"
	"coloc/internal/notify"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting coloc-notifier")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the notifier")
		os.Exit(1)
	}
	if cfg.SMTPHost == "" {
		logger.Error("SMTP_HOST is required for the notifier")
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	deliverer := notify.NewSMTPDeliverer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUsername, cfg.SMTPPassword)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeNotifications(ctx, func(msg *amqp.NotificationMessage) error {
			if err := deliverer.Deliver(msg); err != nil {
				slog.Error("Notification delivery failed",
					"month_key", msg.MonthKey,
					"recipient", msg.RecipientAddress,
					"error", err)
				return err
			}
			slog.Info("Notification delivered",
				"month_key", msg.MonthKey,
				"recipient", msg.RecipientAddress)
			return nil
		})
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Notifier stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Notifier stopped gracefully")
}
