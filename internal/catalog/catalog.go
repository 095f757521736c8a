// Package catalog holds the static drug-name catalog and its phonetic index.
//
// The index is built once at process start and is read-only afterwards, so it
// is safe for unsynchronized concurrent reads across requests.
package catalog

import (
	"github.com/antzucaro/matchr"

	"github.com/farmabot/ocr-service/internal/normalizer"
)

// Entry is a single preprocessed catalog drug name
type Entry struct {
	CanonicalName  string
	NormalizedName string
	PhoneticKey    string
}

// Index is the preprocessed catalog: entries in source order plus a
// phonetic-key lookup table
type Index struct {
	entries  []*Entry
	phonetic map[string][]*Entry
}

// NewIndex builds the catalog index from an ordered list of canonical drug
// names. For each name it computes the normalized form and the double
// metaphone primary code over that form; entries whose phonetic key is empty
// are kept in the entry list but never indexed.
func NewIndex(names []string) *Index {
	ix := &Index{
		entries:  make([]*Entry, 0, len(names)),
		phonetic: make(map[string][]*Entry),
	}

	for _, name := range names {
		entry := &Entry{
			CanonicalName:  name,
			NormalizedName: normalizer.Normalize(name),
		}
		entry.PhoneticKey = PhoneticKey(entry.NormalizedName)
		ix.entries = append(ix.entries, entry)

		if entry.PhoneticKey != "" {
			ix.phonetic[entry.PhoneticKey] = append(ix.phonetic[entry.PhoneticKey], entry)
		}
	}

	return ix
}

// Entries returns all catalog entries in source order
func (ix *Index) Entries() []*Entry {
	return ix.entries
}

// EntriesForPhoneticKey returns the entries whose phonetic key equals key, in
// catalog order. An unknown key yields an empty slice, never an error.
func (ix *Index) EntriesForPhoneticKey(key string) []*Entry {
	return ix.phonetic[key]
}

// Len returns the number of catalog entries
func (ix *Index) Len() int {
	return len(ix.entries)
}

// PhoneticKey computes the double metaphone primary code for a normalized
// string. It may be empty for inputs with no phonetic content.
func PhoneticKey(s string) string {
	primary, _ := matchr.DoubleMetaphone(s)
	return primary
}
