//go:build !ocr
// +build !ocr

package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOCRFallbackReportsUnavailable(t *testing.T) {
	extractor := NewOCRExtractor("por+eng")

	_, err := extractor.Extract(context.Background(), "whatever.jpg")
	assert.Error(t, err)
	assert.ErrorContains(t, err, "ocr")
}
