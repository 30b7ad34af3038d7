package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/mavi-boutique/internal/config"
	"github.com/example/mavi-boutique/internal/email"
	"github.com/example/mavi-boutique/internal/infrastructure/kafka"
	"github.com/example/mavi-boutique/internal/logger"
	"github.com/example/mavi-boutique/internal/notification"
	"go.uber.org/zap"
)

func main() {
	config.LoadDotEnv()
	if err := logger.Init(os.Getenv("APP_ENV") == "development"); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.L().Named("notifier")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadBase(log)
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.NotifyEmail == "" {
		log.Fatal("NOTIFY_EMAIL is required")
	}

	log.Info("starting order notifier",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaTopic),
		zap.String("group", cfg.KafkaGroupID),
		zap.String("smtp", cfg.SMTPHost),
		zap.Int("smtp_port", cfg.SMTPPort),
	)

	emailSvc := email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	handler := notification.NewHandler(emailSvc, cfg.NotifyEmail, log)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, log.Named("kafka"))
	defer consumer.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.ConsumeEvents(ctx, handler.HandleEvent); err != nil && ctx.Err() == nil {
			log.Error("consumer stopped", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-done:
	}

	log.Info("shutting down")
	cancel()
	<-done
}
