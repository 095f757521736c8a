//go:build !ocr
// +build !ocr

package extract

import (
	"context"
)

// OCRExtractor is the fallback used when the binary is built without the ocr
// tag and Tesseract is not linked in
type OCRExtractor struct {
	Language string
}

// NewOCRExtractor creates the fallback OCR extractor
func NewOCRExtractor(language string) *OCRExtractor {
	return &OCRExtractor{Language: language}
}

// Extract returns an error indicating OCR is not available in this build
func (o *OCRExtractor) Extract(ctx context.Context, path string) ([]string, error) {
	return nil, &ExtractionError{
		Message: "OCR requires a build with the 'ocr' tag and Tesseract installed (sudo apt install tesseract-ocr tesseract-ocr-por)",
	}
}
