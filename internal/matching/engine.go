// Package matching resolves noisy normalized text against the drug catalog.
package matching

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"github.com/rs/zerolog"

	"github.com/farmabot/ocr-service/internal/catalog"
	"github.com/farmabot/ocr-service/pkg/logging"
)

// Matching thresholds. Tuned against label photos; a candidate is accepted
// when any single strategy clears its threshold.
const (
	tokenSetThreshold = 75  // strategy 1: token-set ratio, 0-100
	ratioThreshold    = 70  // strategy 3: whole-string ratio, 0-100
	damerauThreshold  = 0.8 // strategy 4: normalized similarity, 0.0-1.0
)

// Engine matches normalized text against a catalog index using four
// independent strategies whose results are unioned
type Engine struct {
	index *catalog.Index
	log   zerolog.Logger
}

// NewEngine creates a matching engine over a built catalog index
func NewEngine(index *catalog.Index) *Engine {
	return &Engine{
		index: index,
		log:   logging.GetLogger("matching"),
	}
}

// Match returns the deduplicated set of catalog drug names that resemble the
// input. The input is assumed to be already normalized; Match does not
// re-normalize. Every catalog entry is scored by every strategy (no early
// exit). An empty result is a valid, non-error outcome. Match keeps no state
// between calls; identical inputs yield identical results.
func (e *Engine) Match(text string) []string {
	matched := make(map[string]struct{})

	text = strings.TrimSpace(text)
	if text != "" {
		e.matchTokenSet(text, matched)
		e.matchPhonetic(text, matched)
		e.matchBestRatio(text, matched)
		e.matchDamerau(text, matched)
	}

	names := make([]string, 0, len(matched))
	for name := range matched {
		names = append(names, name)
	}
	sort.Strings(names)

	e.log.Debug().
		Str("text", text).
		Strs("matched", names).
		Msg("Matching completed")

	return names
}

// matchTokenSet includes every entry whose token-set ratio against the whole
// input clears the threshold. Token multisets collapse duplicates and ignore
// order, so repeated dosage tokens do not skew the score.
func (e *Engine) matchTokenSet(text string, matched map[string]struct{}) {
	for _, entry := range e.index.Entries() {
		if fuzzy.TokenSetRatio(text, entry.NormalizedName) >= tokenSetThreshold {
			matched[entry.NormalizedName] = struct{}{}
		}
	}
}

// matchPhonetic looks up the double metaphone primary code of each input
// token in the phonetic index and includes the first entry of a hit bucket.
func (e *Engine) matchPhonetic(text string, matched map[string]struct{}) {
	for _, token := range strings.Fields(text) {
		key := catalog.PhoneticKey(token)
		if key == "" {
			continue
		}
		if bucket := e.index.EntriesForPhoneticKey(key); len(bucket) > 0 {
			matched[bucket[0].NormalizedName] = struct{}{}
		}
	}
}

// matchBestRatio tracks the single best whole-string ratio across the catalog
// and includes that entry when it also clears the threshold. At most one
// entry per call comes from this strategy.
func (e *Engine) matchBestRatio(text string, matched map[string]struct{}) {
	bestScore := 0
	bestName := ""
	for _, entry := range e.index.Entries() {
		score := fuzzy.Ratio(text, entry.NormalizedName)
		if score > bestScore && score >= ratioThreshold {
			bestScore = score
			bestName = entry.NormalizedName
		}
	}
	if bestName != "" {
		matched[bestName] = struct{}{}
	}
}

// matchDamerau includes every entry whose length-normalized Damerau
// Levenshtein similarity against the whole input exceeds the threshold.
// Adjacent transpositions count as a single edit, which is what rescues the
// typical OCR letter swaps.
func (e *Engine) matchDamerau(text string, matched map[string]struct{}) {
	for _, entry := range e.index.Entries() {
		if damerauSimilarity(text, entry.NormalizedName) > damerauThreshold {
			matched[entry.NormalizedName] = struct{}{}
		}
	}
}

// damerauSimilarity is the Damerau-Levenshtein distance normalized by the
// longer string length, yielding 1.0 for identical strings and 0.0 for
// entirely dissimilar ones.
func damerauSimilarity(a, b string) float64 {
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	dist := matchr.DamerauLevenshtein(a, b)
	return 1 - float64(dist)/float64(longest)
}
