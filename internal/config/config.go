// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"

	"github.com/farmabot/ocr-service/pkg/logging"
)

// Config holds all runtime configuration for the service
type Config struct {
	// Broker configuration
	RabbitMQURI string

	// HTTP configuration
	Port string

	// Extraction configuration
	UploadsDir   string
	OCRLanguages string

	// Catalog configuration
	CatalogPath string

	// OpenAI configuration (optional enrichment path)
	OpenAIAPIKey  string
	LLMEnrichment bool

	// Logging configuration
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables, applying defaults
func Load() *Config {
	return &Config{
		RabbitMQURI:   getEnv("RABBITMQ_URI", "amqp://localhost:5672"),
		Port:          getEnv("PORT", "8080"),
		UploadsDir:    getEnv("UPLOADS_DIR", "uploads"),
		OCRLanguages:  getEnv("OCR_LANGUAGES", "por+eng"),
		CatalogPath:   getEnv("CATALOG_PATH", ""),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		LLMEnrichment: getEnvBool("LLM_ENRICHMENT", false),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
	}
}

// GetLoggerConfig returns the logging configuration subset
func (c *Config) GetLoggerConfig() *logging.Config {
	return &logging.Config{
		Level:  c.LogLevel,
		Format: c.LogFormat,
	}
}

// LLMEnabled reports whether the OpenAI enrichment path should be constructed
func (c *Config) LLMEnabled() bool {
	return c.LLMEnrichment && c.OpenAIAPIKey != ""
}

// getEnv retrieves an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
