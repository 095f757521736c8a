// Package extract turns an on-disk document into ordered text fragments.
//
// The engine dispatches on file extension: photographed labels go through
// Tesseract OCR, digital prescriptions through the PDF or DOCX extractors,
// and anything unrecognized is read as plain text.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExtractionError represents a non-retryable extraction failure
type ExtractionError struct {
	Message string
}

func (e *ExtractionError) Error() string {
	return e.Message
}

// Extractor produces ordered text fragments from a file on disk
type Extractor interface {
	Extract(ctx context.Context, path string) ([]string, error)
}

// Engine routes a file to the extractor registered for its extension
type Engine struct {
	extractors map[string]Extractor
	fallback   Extractor
}

// NewEngine creates an engine with the default extractor set. languages is
// the Tesseract language string (e.g. "por+eng").
func NewEngine(languages string) *Engine {
	ocr := NewOCRExtractor(languages)
	text := &TextExtractor{}
	return &Engine{
		extractors: map[string]Extractor{
			".png":  ocr,
			".jpg":  ocr,
			".jpeg": ocr,
			".tiff": ocr,
			".bmp":  ocr,
			".gif":  ocr,
			".pdf":  &PDFExtractor{},
			".docx": &DOCXExtractor{},
			".doc":  &DOCXExtractor{},
			".txt":  text,
		},
		fallback: text,
	}
}

// Extract dispatches path to the extractor for its extension, defaulting to
// plain text
func (e *Engine) Extract(ctx context.Context, path string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	extractor, ok := e.extractors[ext]
	if !ok {
		extractor = e.fallback
	}
	return extractor.Extract(ctx, path)
}

// TextExtractor reads a file as plain text, one fragment per line
type TextExtractor struct{}

func (t *TextExtractor) Extract(ctx context.Context, path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text file: %w", err)
	}
	return splitFragments(string(content)), nil
}

// splitFragments breaks text into non-empty trimmed lines, preserving order
func splitFragments(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var fragments []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			fragments = append(fragments, line)
		}
	}
	return fragments
}
