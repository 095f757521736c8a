//go:build ocr
// +build ocr

package extract

import (
	"context"
	"fmt"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// OCRExtractor extracts text from images using Tesseract. The Tesseract
// client is not reentrant, so all extractions are serialized on a mutex.
type OCRExtractor struct {
	Language             string // Tesseract language code (e.g. "por+eng")
	PageSegmentationMode gosseract.PageSegMode

	mu sync.Mutex
}

// NewOCRExtractor creates an OCR extractor for the given language string
func NewOCRExtractor(language string) *OCRExtractor {
	return &OCRExtractor{
		Language:             language,
		PageSegmentationMode: gosseract.PSM_AUTO,
	}
}

// Extract runs OCR over the image at path and returns the recognized text as
// ordered line fragments
func (o *OCRExtractor) Extract(ctx context.Context, path string) ([]string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(o.Language); err != nil {
		return nil, &ExtractionError{
			Message: fmt.Sprintf("failed to set OCR language '%s': %v", o.Language, err),
		}
	}

	if err := client.SetPageSegMode(o.PageSegmentationMode); err != nil {
		return nil, &ExtractionError{
			Message: fmt.Sprintf("failed to set page segmentation mode: %v", err),
		}
	}

	if err := client.SetImage(path); err != nil {
		return nil, &ExtractionError{
			Message: fmt.Sprintf("failed to set OCR image: %v", err),
		}
	}

	text, err := client.Text()
	if err != nil {
		return nil, &ExtractionError{
			Message: fmt.Sprintf("OCR text extraction failed: %v", err),
		}
	}

	return splitFragments(text), nil
}
