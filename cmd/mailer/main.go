package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Clark-Hu/movie-directory/internal/config"
	"github.com/Clark-Hu/movie-directory/internal/logging"
	"github.com/Clark-Hu/movie-directory/internal/mailer"
	"github.com/Clark-Hu/movie-directory/internal/notify"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(os.Stdout, "mailer")

	cfg, err := config.LoadMailer()
	if err != nil {
		logger.Fatal("config error", "err", err)
	}

	logs, err := mailer.OpenLogStore(cfg.LogDBPath)
	if err != nil {
		logger.Fatal("open email log", "err", err)
	}
	defer logs.Close()

	broker, err := notify.Dial(cfg.AMQPURL, cfg.Queue, logger)
	if err != nil {
		logger.Fatal("connect broker", "err", err)
	}
	defer broker.Close()

	deliveries, err := broker.Consume(ctx)
	if err != nil {
		logger.Fatal("consume queue", "queue", cfg.Queue, "err", err)
	}

	sender := mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.From)
	worker := mailer.NewWorker(logs, sender, mailer.Options{
		RetryInterval:  time.Duration(cfg.RetryIntervalSecs) * time.Second,
		MaxAttempts:    cfg.MaxAttempts,
		SendsPerSecond: cfg.SendsPerSecond,
	}, logger)

	logger.Info("waiting for messages", "queue", cfg.Queue)
	if err := worker.Run(ctx, deliveries); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", "err", err)
	}
}
