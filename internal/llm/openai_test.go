package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNames(t *testing.T) {
	got := parseNames("Dipirona, Paracetamol, Ibuprofeno 600mg")
	assert.Equal(t, []string{"dipirona", "paracetamol", "ibuprofeno 600mg"}, got)
}

func TestParseNamesDeduplicatesAndNormalizes(t *testing.T) {
	got := parseNames("Dipirona, dipirona!, DIPIRONA,  , Omeprazol")
	assert.Equal(t, []string{"dipirona", "omeprazol"}, got)
}

func TestParseNamesEmptyOutput(t *testing.T) {
	assert.Empty(t, parseNames(""))
	assert.Empty(t, parseNames(" , ,, "))
}
