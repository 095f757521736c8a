package extract

import (
	"context"
	"fmt"

	"github.com/nguyenthenguyen/docx"
)

// DOCXExtractor extracts text from DOCX documents
type DOCXExtractor struct{}

func (d *DOCXExtractor) Extract(ctx context.Context, path string) ([]string, error) {
	doc, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, &ExtractionError{
			Message: fmt.Sprintf("failed to parse DOCX: %v", err),
		}
	}
	defer doc.Close()

	text := doc.Editable().GetContent()
	fragments := splitFragments(text)
	if len(fragments) == 0 {
		return nil, &ExtractionError{
			Message: "DOCX document contains no extractable text",
		}
	}
	return fragments, nil
}
