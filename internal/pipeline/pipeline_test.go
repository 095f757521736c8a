package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmabot/ocr-service/internal/catalog"
	"github.com/farmabot/ocr-service/internal/llm"
	"github.com/farmabot/ocr-service/internal/matching"
)

// fakeExtractor stands in for the OCR engine and records what it saw
type fakeExtractor struct {
	fragments []string
	err       error

	gotPath     string
	pathExisted bool
	invocations int
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) ([]string, error) {
	f.invocations++
	f.gotPath = path
	_, statErr := os.Stat(path)
	f.pathExisted = statErr == nil
	return f.fragments, f.err
}

// fakeEnricher is a stub model collaborator
type fakeEnricher struct {
	names []string
	err   error
}

func (f *fakeEnricher) ExtractDrugNames(ctx context.Context, text string) ([]string, error) {
	return f.names, f.err
}

func testMatcher() *matching.Engine {
	return matching.NewEngine(catalog.NewIndex([]string{"Dipirona", "Paracetamol"}))
}

func TestProcessSuccess(t *testing.T) {
	dir := t.TempDir()
	extractor := &fakeExtractor{fragments: []string{"Tome Dipirona 500mg", "de 8 em 8 horas"}}
	p := NewProcessor(extractor, testMatcher(), nil, dir)

	result := p.Process(context.Background(), Request{
		SourceID:   "5521999999999",
		ImageBytes: []byte("not-really-a-jpeg"),
	})

	require.True(t, result.Success)
	assert.Empty(t, result.ErrorMessage)
	assert.Equal(t, "5521999999999", result.SourceID)
	assert.Equal(t, "Tome Dipirona 500mg de 8 em 8 horas", result.RawText)
	assert.Equal(t, "tome dipirona 500mg de 8 em 8 horas", result.NormalizedText)
	assert.Contains(t, result.MatchedDrugs, "dipirona")

	// The temp artifact existed during extraction and is gone afterwards
	assert.True(t, extractor.pathExisted)
	assert.Equal(t, dir, filepath.Dir(extractor.gotPath))
	assert.Equal(t, ".jpg", filepath.Ext(extractor.gotPath))
	assertDirEmpty(t, dir)
}

func TestProcessExtractorFailure(t *testing.T) {
	dir := t.TempDir()
	extractor := &fakeExtractor{err: errors.New("tesseract exploded")}
	p := NewProcessor(extractor, testMatcher(), nil, dir)

	result := p.Process(context.Background(), Request{SourceID: "s1", ImageBytes: []byte("x")})

	require.False(t, result.Success)
	assert.Equal(t, "tesseract exploded", result.ErrorMessage)
	assert.Empty(t, result.RawText)
	assert.Empty(t, result.MatchedDrugs)
	// Cleanup happens on the failure path too
	assertDirEmpty(t, dir)
}

func TestProcessEmptyImage(t *testing.T) {
	dir := t.TempDir()
	p := NewProcessor(&fakeExtractor{}, testMatcher(), nil, dir)

	result := p.Process(context.Background(), Request{SourceID: "s1"})

	require.False(t, result.Success)
	assert.Equal(t, "no image data provided", result.ErrorMessage)
	assertDirEmpty(t, dir)
}

func TestProcessUsesUploadFilenameExtension(t *testing.T) {
	dir := t.TempDir()
	extractor := &fakeExtractor{fragments: []string{"Paracetamol"}}
	p := NewProcessor(extractor, testMatcher(), nil, dir)

	result := p.Process(context.Background(), Request{
		SourceID:   "s1",
		ImageBytes: []byte("%PDF-fake"),
		Filename:   "receita.PDF",
	})

	require.True(t, result.Success)
	assert.Equal(t, ".pdf", filepath.Ext(extractor.gotPath))
}

func TestProcessUniqueTempNames(t *testing.T) {
	dir := t.TempDir()
	extractor := &fakeExtractor{fragments: []string{"dipirona"}}
	p := NewProcessor(extractor, testMatcher(), nil, dir)

	first := p.Process(context.Background(), Request{SourceID: "a", ImageBytes: []byte("1")})
	firstPath := extractor.gotPath
	second := p.Process(context.Background(), Request{SourceID: "b", ImageBytes: []byte("2")})

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.NotEqual(t, firstPath, extractor.gotPath)
}

func TestProcessEnrichmentUnion(t *testing.T) {
	dir := t.TempDir()
	extractor := &fakeExtractor{fragments: []string{"Dipirona"}}
	enricher := &fakeEnricher{names: []string{"dipirona", "omeprazol"}}
	p := NewProcessor(extractor, testMatcher(), enricher, dir)

	result := p.Process(context.Background(), Request{SourceID: "s1", ImageBytes: []byte("x")})

	require.True(t, result.Success)
	assert.Contains(t, result.MatchedDrugs, "dipirona")
	assert.Contains(t, result.MatchedDrugs, "omeprazol")
	assert.Equal(t, countOf(result.MatchedDrugs, "dipirona"), 1)
}

func TestProcessEnrichmentFailureIsBestEffort(t *testing.T) {
	dir := t.TempDir()
	extractor := &fakeExtractor{fragments: []string{"Dipirona"}}
	enricher := &fakeEnricher{err: errors.New("Erro OpenAI: quota")}
	p := NewProcessor(extractor, testMatcher(), enricher, dir)

	result := p.Process(context.Background(), Request{SourceID: "s1", ImageBytes: []byte("x")})

	require.True(t, result.Success)
	assert.Contains(t, result.MatchedDrugs, "dipirona")
}

var _ llm.Extractor = (*fakeEnricher)(nil)

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary artifacts left behind")
}

func countOf(names []string, want string) int {
	n := 0
	for _, name := range names {
		if name == want {
			n++
		}
	}
	return n
}
