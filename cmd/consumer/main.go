// Package main provides the message-only consumer binary. Run multiple
// instances bound to the same queue to scale out (competing consumers).
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/farmabot/ocr-service/internal/catalog"
	"github.com/farmabot/ocr-service/internal/config"
	"github.com/farmabot/ocr-service/internal/llm"
	"github.com/farmabot/ocr-service/internal/matching"
	"github.com/farmabot/ocr-service/internal/messaging"
	"github.com/farmabot/ocr-service/internal/pipeline"
	"github.com/farmabot/ocr-service/pkg/extract"
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
	logger := logging.GetLogger("main")

	names := catalog.DefaultNames
	if cfg.CatalogPath != "" {
		loaded, err := catalog.LoadNames(cfg.CatalogPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("Failed to load catalog")
		}
		names = loaded
	}
	matcher := matching.NewEngine(catalog.NewIndex(names))

	var enricher llm.Extractor
	if cfg.LLMEnabled() {
		enricher = llm.NewOpenAIExtractor(cfg.OpenAIAPIKey)
	}
	processor := pipeline.NewProcessor(extract.NewEngine(cfg.OCRLanguages), matcher, enricher, cfg.UploadsDir)

	mq, err := messaging.Dial(cfg.RabbitMQURI)
	if err != nil {
		logger.Fatal().Err(err).Str("uri", cfg.RabbitMQURI).Msg("Failed to connect to broker")
	}
	defer mq.Close()

	consumer := messaging.NewConsumer(mq, processor)
	if err := consumer.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to subscribe consumer")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Int("catalog_entries", len(names)).Msg("Consumer started")
	if err := mq.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal().Err(err).Msg("Consumer loop stopped")
	}
	logger.Info().Msg("Consumer shut down")
}
