// Package main provides the entry point for the farma-ocr server: the HTTP
// upload API plus the embedded queue consumer.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/farmabot/ocr-service/internal/api"
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

	processor, err := buildProcessor(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build pipeline")
	}

	// Broker side: consumer loop in the background, this process stays the
	// single logical consumer of its adapter instance
	mq, err := messaging.Dial(cfg.RabbitMQURI)
	if err != nil {
		logger.Fatal().Err(err).Str("uri", cfg.RabbitMQURI).Msg("Failed to connect to broker")
	}
	defer mq.Close()

	consumer := messaging.NewConsumer(mq, processor)
	if err := consumer.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to subscribe consumer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := mq.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("Consumer loop stopped")
		}
	}()

	// HTTP side
	app := fiber.New(fiber.Config{
		AppName:               "Farma OCR API",
		DisableStartupMessage: false,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   err.Error(),
				"success": false,
			})
		},
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${error}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "UTC",
	}))
	app.Use(cors.New())

	h := api.NewHandlers(processor)
	setupRoutes(app, h)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info().Msg("Shutting down server")
		cancel()
		if err := app.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	logger.Info().Str("port", cfg.Port).Msg("Starting farma-ocr server")
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

// setupRoutes configures all API routes
func setupRoutes(app *fiber.App, h *api.Handlers) {
	app.Get("/health", h.Health)
	app.Post("/api/ocr", h.ExtractText)
}

// buildProcessor assembles the read-only process-wide context: catalog
// index, matcher, extraction engine, and the optional model collaborator
func buildProcessor(cfg *config.Config) (*pipeline.Processor, error) {
	names := catalog.DefaultNames
	if cfg.CatalogPath != "" {
		loaded, err := catalog.LoadNames(cfg.CatalogPath)
		if err != nil {
			return nil, err
		}
		names = loaded
	}

	matcher := matching.NewEngine(catalog.NewIndex(names))
	engine := extract.NewEngine(cfg.OCRLanguages)

	var enricher llm.Extractor
	if cfg.LLMEnabled() {
		enricher = llm.NewOpenAIExtractor(cfg.OpenAIAPIKey)
	}

	return pipeline.NewProcessor(engine, matcher, enricher, cfg.UploadsDir), nil
}
