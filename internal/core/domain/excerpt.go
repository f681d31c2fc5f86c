package domain

import (
	"fmt"
	"sort"
	"strings"
)

// ExcerptLine is one selected line of a document.
type ExcerptLine struct {
	// Number is the 1-based line number in the source text.
	Number int
	Text   string
}

// ReductionStats describes one relevance reduction.
type ReductionStats struct {
	TotalLines    int
	TotalChars    int
	ExcludedLines int
	Seeds         int
	SelectedLines int
	// Truncated is set when the line cap removed selected lines.
	Truncated   bool
	KeywordHits map[string]int
}

// KeywordCount is a keyword with its number of seed hits.
type KeywordCount struct {
	Keyword string
	Count   int
}

// TopKeywords returns the n most frequent seed keywords, most frequent first.
func (s ReductionStats) TopKeywords(n int) []KeywordCount {
	out := make([]KeywordCount, 0, len(s.KeywordHits))
	for k, c := range s.KeywordHits {
		out = append(out, KeywordCount{Keyword: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Keyword < out[j].Keyword
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Excerpt is the reduced text sent to an extraction backend.
// It is derived on demand and never persisted.
type Excerpt struct {
	Document DocumentID
	Lines    []ExcerptLine
	Stats    ReductionStats
}

// IsEmpty reports whether no line was selected.
func (e *Excerpt) IsEmpty() bool {
	return e == nil || len(e.Lines) == 0
}

// Text joins the selected lines in document order.
func (e *Excerpt) Text() string {
	if e.IsEmpty() {
		return ""
	}
	parts := make([]string, len(e.Lines))
	for i, l := range e.Lines {
		parts[i] = l.Text
	}
	return strings.Join(parts, "\n")
}

// Numbered renders the excerpt with source line numbers, e.g. "[L.0042] text".
func (e *Excerpt) Numbered() string {
	if e.IsEmpty() {
		return ""
	}
	parts := make([]string, len(e.Lines))
	for i, l := range e.Lines {
		parts[i] = fmt.Sprintf("[L.%04d] %s", l.Number, l.Text)
	}
	return strings.Join(parts, "\n")
}

// CompressionRatio returns the excerpt size as a fraction of the source size.
func (e *Excerpt) CompressionRatio() float64 {
	if e == nil || e.Stats.TotalChars == 0 {
		return 0
	}
	return float64(len(e.Text())) / float64(e.Stats.TotalChars)
}
