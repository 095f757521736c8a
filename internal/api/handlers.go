// Package api provides the HTTP transport for the extraction pipeline.
package api

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/farmabot/ocr-service/internal/pipeline"
	"github.com/farmabot/ocr-service/pkg/logging"
)

// Handlers contains the HTTP handlers for the API
type Handlers struct {
	processor *pipeline.Processor
	log       zerolog.Logger
}

// NewHandlers creates a new handlers instance
func NewHandlers(processor *pipeline.Processor) *Handlers {
	return &Handlers{
		processor: processor,
		log:       logging.GetLogger("api"),
	}
}

// Health returns the service health status
func (h *Handlers) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"service":   "farma-ocr",
		"timestamp": time.Now().UTC(),
	})
}

// ExtractResponse is the success body of POST /api/ocr
type ExtractResponse struct {
	TextoExtraido     string   `json:"texto_extraido"`
	TextoNormalizado  string   `json:"texto_normalizado"`
	MatchMedicamentos []string `json:"match_medicamentos"`
	Success           bool     `json:"success"`
}

// ExtractText handles the multipart image upload and runs the pipeline
// synchronously. Business failures keep a 200 status with success:false,
// which is the contract message-path callers also rely on.
func (h *Handlers) ExtractText(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		h.log.Warn().Err(err).Msg("Upload without readable file field")
		return h.failure(c, "no file uploaded or invalid multipart form")
	}

	src, err := file.Open()
	if err != nil {
		return h.failure(c, "could not open uploaded file")
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return h.failure(c, "could not read uploaded file")
	}

	result := h.processor.Process(c.Context(), pipeline.Request{
		SourceID:   uuid.New().String(),
		ImageBytes: content,
		Filename:   file.Filename,
	})
	if !result.Success {
		return h.failure(c, result.ErrorMessage)
	}

	return c.JSON(ExtractResponse{
		TextoExtraido:     result.RawText,
		TextoNormalizado:  result.NormalizedText,
		MatchMedicamentos: result.MatchedDrugs,
		Success:           true,
	})
}

func (h *Handlers) failure(c *fiber.Ctx, message string) error {
	return c.JSON(fiber.Map{
		"error":   message,
		"success": false,
	})
}
