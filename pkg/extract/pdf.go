package extract

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor extracts text from digital PDF documents, one fragment per page
type PDFExtractor struct {
	MaxPages int // 0 means no limit
}

func (p *PDFExtractor) Extract(ctx context.Context, path string) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, &ExtractionError{
			Message: fmt.Sprintf("failed to parse PDF: %v", err),
		}
	}
	defer f.Close()

	var fragments []string
	for i := 1; i <= reader.NumPage(); i++ {
		if p.MaxPages > 0 && i > p.MaxPages {
			break
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// Skip unreadable pages and keep going
			continue
		}
		fragments = append(fragments, splitFragments(pageText)...)
	}

	if len(fragments) == 0 {
		return nil, &ExtractionError{
			Message: "PDF document contains no extractable text",
		}
	}
	return fragments, nil
}
