// Package pipeline orchestrates a single extraction request: decode the
// image, run text extraction, normalize, match, and assemble the result.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/farmabot/ocr-service/internal/llm"
	"github.com/farmabot/ocr-service/internal/matching"
	"github.com/farmabot/ocr-service/internal/normalizer"
	"github.com/farmabot/ocr-service/pkg/logging"
)

// Request is a single extraction request. SourceID is an opaque correlation
// token (a phone number on the message path, a generated id on the HTTP
// path). Requests are consumed exactly once and never persisted.
type Request struct {
	SourceID   string
	ImageBytes []byte
	Filename   string // original upload name, used only for type dispatch
}

// Result is the terminal record of one extraction request, immutable after
// construction
type Result struct {
	SourceID       string
	RawText        string
	NormalizedText string
	MatchedDrugs   []string
	Success        bool
	ErrorMessage   string
}

// TextExtractor produces ordered text fragments from a file on disk
type TextExtractor interface {
	Extract(ctx context.Context, path string) ([]string, error)
}

// Processor runs the extraction pipeline. The catalog-backed matcher is
// shared and read-only; each Process call owns its request and temp file.
type Processor struct {
	extractor  TextExtractor
	matcher    *matching.Engine
	enricher   llm.Extractor // optional, may be nil
	uploadsDir string
}

// NewProcessor creates a pipeline processor. enricher may be nil to disable
// the model-based enrichment path.
func NewProcessor(extractor TextExtractor, matcher *matching.Engine, enricher llm.Extractor, uploadsDir string) *Processor {
	return &Processor{
		extractor:  extractor,
		matcher:    matcher,
		enricher:   enricher,
		uploadsDir: uploadsDir,
	}
}

// Process runs a request through decode, extraction, normalization, and
// matching. It never returns an error: every failure is captured into
// Result{Success: false, ErrorMessage}. The decoded temp image is removed on
// every exit path, including extractor failures.
func (p *Processor) Process(ctx context.Context, req Request) Result {
	log := logging.GetPipelineLogger(req.SourceID)
	log.Info().Int("image_bytes", len(req.ImageBytes)).Msg("Request received")

	if len(req.ImageBytes) == 0 {
		return p.failed(log, req, "decoding", "no image data provided")
	}

	log.Debug().Str("stage", "decoding").Send()
	if err := os.MkdirAll(p.uploadsDir, 0o755); err != nil {
		return p.failed(log, req, "decoding", err.Error())
	}
	path := filepath.Join(p.uploadsDir, uuid.New().String()+tempExt(req.Filename))
	if err := os.WriteFile(path, req.ImageBytes, 0o644); err != nil {
		return p.failed(log, req, "decoding", err.Error())
	}
	defer os.Remove(path)

	log.Debug().Str("stage", "extracting_text").Str("path", path).Send()
	fragments, err := p.extractor.Extract(ctx, path)
	if err != nil {
		return p.failed(log, req, "extracting_text", err.Error())
	}
	rawText := strings.Join(fragments, " ")

	log.Debug().Str("stage", "normalizing").Send()
	normalizedText := normalizer.Normalize(rawText)

	log.Debug().Str("stage", "matching").Send()
	drugs := p.matcher.Match(normalizedText)
	drugs = p.enrich(ctx, log, normalizedText, drugs)

	log.Info().
		Int("fragments", len(fragments)).
		Int("matched", len(drugs)).
		Msg("Request completed")

	return Result{
		SourceID:       req.SourceID,
		RawText:        rawText,
		NormalizedText: normalizedText,
		MatchedDrugs:   drugs,
		Success:        true,
	}
}

// enrich unions the model collaborator's names into the matched set.
// Best-effort: a collaborator failure is logged and the catalog matches are
// returned unchanged.
func (p *Processor) enrich(ctx context.Context, log zerolog.Logger, normalizedText string, drugs []string) []string {
	if p.enricher == nil {
		return drugs
	}

	names, err := p.enricher.ExtractDrugNames(ctx, normalizedText)
	if err != nil {
		log.Warn().Err(err).Msg("Model enrichment failed")
		return drugs
	}

	seen := make(map[string]struct{}, len(drugs))
	for _, d := range drugs {
		seen[d] = struct{}{}
	}
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		drugs = append(drugs, name)
	}
	return drugs
}

func (p *Processor) failed(log zerolog.Logger, req Request, stage, message string) Result {
	log.Warn().Str("stage", stage).Str("error", message).Msg("Request failed")
	return Result{
		SourceID:     req.SourceID,
		Success:      false,
		ErrorMessage: message,
	}
}

// tempExt picks the temp file extension from the original filename,
// defaulting to .jpg for the message path where no name is carried
func tempExt(filename string) string {
	if ext := filepath.Ext(filename); ext != "" {
		return strings.ToLower(ext)
	}
	return ".jpg"
}
