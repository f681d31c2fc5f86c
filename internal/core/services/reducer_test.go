package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
)

func newTestReducer(include, exclude []string) *RelevanceReducer {
	return NewRelevanceReducer(domain.ReducerSettings{
		Include:  include,
		Exclude:  exclude,
		Window:   3,
		MaxLines: DefaultMaxLines,
	})
}

// TestReducer_ContextExpansion tests that a seed keeps the two following lines
func TestReducer_ContextExpansion(t *testing.T) {
	lines := []string{"noise", "Generator 500 kW", "Model X200", "Fuel: diesel", "noise"}
	r := newTestReducer([]string{"generator"}, nil)

	assert.Equal(t, []int{1}, r.Seeds(lines))
	assert.Equal(t, []int{1, 2, 3}, r.Select(lines))
}

// TestReducer_ExclusionWins tests that a line matching both keyword sets is never a seed
func TestReducer_ExclusionWins(t *testing.T) {
	lines := []string{
		"Emission limit of the generator: 50 mg/Nm3",
		"Backup generator 250 kVA",
	}
	r := newTestReducer([]string{"generator"}, []string{"emission"})

	assert.Equal(t, []int{1}, r.Seeds(lines))
	assert.Equal(t, []int{1}, r.Select(lines))
}

// TestReducer_ExpansionIsForwardOnly tests that lines before a seed are never selected
func TestReducer_ExpansionIsForwardOnly(t *testing.T) {
	lines := []string{"Manufacturer: ACME", "Boiler 2 MW", "Gas fired"}
	r := newTestReducer([]string{"boiler"}, nil)

	assert.Equal(t, []int{1, 2}, r.Select(lines))
}

// TestReducer_OverlappingWindows tests deduplication and ordering of overlapping windows
func TestReducer_OverlappingWindows(t *testing.T) {
	lines := []string{"pump 10 kW", "compressor 30 kW", "x", "y", "z", "chiller"}
	r := newTestReducer([]string{"pump", "compressor", "chiller"}, nil)

	assert.Equal(t, []int{0, 1, 2, 3, 5}, r.Select(lines))
}

func TestReducer_CaseInsensitive(t *testing.T) {
	lines := []string{"TRANSFORMER 1600 KVA"}
	r := newTestReducer([]string{" Transformer "}, []string{"PERMIT"})

	assert.Equal(t, []int{0}, r.Seeds(lines))
	assert.Equal(t, []int(nil), r.Seeds([]string{"Transformer permit conditions"}))
}

// TestReducer_NoSeeds tests that a document without keywords yields an empty excerpt
func TestReducer_NoSeeds(t *testing.T) {
	r := newTestReducer([]string{"generator"}, nil)

	excerpt := r.Reduce("s_0123456789ab", "nothing\nof interest\n")
	assert.True(t, excerpt.IsEmpty())
	assert.Equal(t, "", excerpt.Text())
	assert.Equal(t, 0, excerpt.Stats.Seeds)

	empty := r.Reduce("s_0123456789ab", "")
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, 0, empty.Stats.TotalLines)
}

func TestReducer_Reduce(t *testing.T) {
	text := "intro\r\nGenerator 500 kW\r\nModel X200\r\nFuel: diesel\r\nEmission limits for the generator\r\nend"
	r := newTestReducer([]string{"generator", "kw"}, []string{"emission"})

	excerpt := r.Reduce("s_0123456789ab", text)

	require.False(t, excerpt.IsEmpty())
	assert.Equal(t, "Generator 500 kW\nModel X200\nFuel: diesel", excerpt.Text())
	assert.Equal(t, "[L.0002] Generator 500 kW\n[L.0003] Model X200\n[L.0004] Fuel: diesel", excerpt.Numbered())
	assert.Equal(t, 6, excerpt.Stats.TotalLines)
	assert.Equal(t, 1, excerpt.Stats.ExcludedLines)
	assert.Equal(t, 1, excerpt.Stats.Seeds)
	assert.Equal(t, 3, excerpt.Stats.SelectedLines)
	assert.Equal(t, map[string]int{"generator": 1}, excerpt.Stats.KeywordHits)
}

func TestReducer_WindowAtDocumentEnd(t *testing.T) {
	lines := []string{"a", "b", "battery storage 2 MWh"}
	r := newTestReducer([]string{"battery"}, nil)

	assert.Equal(t, []int{2}, r.Select(lines))
}

func TestReducer_CustomWindow(t *testing.T) {
	lines := []string{"turbine", "a", "b", "c", "d"}

	one := NewRelevanceReducer(domain.ReducerSettings{Include: []string{"turbine"}, Window: 1})
	assert.Equal(t, []int{0}, one.Select(lines))

	five := NewRelevanceReducer(domain.ReducerSettings{Include: []string{"turbine"}, Window: 5})
	assert.Equal(t, []int{0, 1, 2, 3, 4}, five.Select(lines))

	defaulted := NewRelevanceReducer(domain.ReducerSettings{Include: []string{"turbine"}})
	assert.Equal(t, []int{0, 1, 2}, defaulted.Select(lines))
}

// TestReducer_MaxLines tests that the line cap keeps the first selected lines
func TestReducer_MaxLines(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "pump %d\n", i)
	}
	r := NewRelevanceReducer(domain.ReducerSettings{Include: []string{"pump"}, Window: 1, MaxLines: 5})

	excerpt := r.Reduce("s_0123456789ab", b.String())

	assert.Len(t, excerpt.Lines, 5)
	assert.True(t, excerpt.Stats.Truncated)
	assert.Equal(t, 1, excerpt.Lines[0].Number)
	assert.Equal(t, 5, excerpt.Lines[4].Number)
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, SplitLines(""))
	assert.Equal(t, []string{"a", "b", ""}, SplitLines("a\r\nb\n"))
}
