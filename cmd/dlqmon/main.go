// Package main provides a dead-letter queue inspector: it drains poison
// messages from the OCR dead-letter exchange and logs them for diagnosis.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/farmabot/ocr-service/internal/config"
	"github.com/farmabot/ocr-service/internal/messaging"
	"github.com/farmabot/ocr-service/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg := config.Load()
	if err := logging.Setup(cfg.GetLoggerConfig()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger := logging.GetLogger("dlqmon")

	mq, err := messaging.Dial(cfg.RabbitMQURI)
	if err != nil {
		logger.Fatal().Err(err).Str("uri", cfg.RabbitMQURI).Msg("Failed to connect to broker")
	}
	defer mq.Close()

	err = mq.HandleDeadLetter(messaging.DeadLetterExchange, messaging.DeadLetterQueue,
		func(ctx context.Context, payload json.RawMessage) error {
			logger.Warn().RawJSON("payload", payload).Msg("Dead-lettered message")
			return nil
		})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to subscribe to dead-letter queue")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("queue", messaging.DeadLetterQueue).Msg("Dead-letter monitor started")
	if err := mq.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal().Err(err).Msg("Monitor loop stopped")
	}
}
