package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/example/mavi-boutique/internal/config"
	"github.com/example/mavi-boutique/internal/email"
	"github.com/example/mavi-boutique/internal/infrastructure/kinesis"
	"github.com/example/mavi-boutique/internal/logger"
	"github.com/example/mavi-boutique/internal/notification"
	"go.uber.org/zap"
)

var (
	notificationHandler *notification.Handler
	log                 *zap.Logger
)

func init() {
	if err := logger.Init(os.Getenv("APP_ENV") == "development"); err != nil {
		panic(err)
	}
	log = logger.L().Named("lambda-notifier")

	cfg, err := config.LoadBase(log)
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.NotifyEmail == "" {
		log.Fatal("NOTIFY_EMAIL is required")
	}

	emailSvc := email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	notificationHandler = notification.NewHandler(emailSvc, cfg.NotifyEmail, log)

	log.Info("initialized", zap.String("smtp", cfg.SMTPHost), zap.Int("smtp_port", cfg.SMTPPort))
}

func handler(ctx context.Context, kinesisEvent events.KinesisEvent) (events.KinesisEventResponse, error) {
	defer logger.Sync()
	return kinesis.ProcessBatch(ctx, kinesisEvent, notificationHandler.HandleEvent, log), nil
}

func main() {
	lambda.Start(handler)
}
