package services

import (
	"strings"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/logger"
)

// Reducer defaults.
const (
	DefaultContextWindow = domain.DefaultContextWindow
	DefaultMaxLines      = domain.DefaultMaxLines
)

// RelevanceReducer shrinks a translated document to the lines that describe
// equipment. A keyword pass finds seed lines, then each seed is expanded
// forward so the equipment details on the lines after it are kept.
type RelevanceReducer struct {
	include  []string
	exclude  []string
	window   int
	maxLines int
}

// NewRelevanceReducer creates a reducer from settings. Keywords are matched
// case-insensitively as substrings. A window below 1 uses DefaultContextWindow.
func NewRelevanceReducer(settings domain.ReducerSettings) *RelevanceReducer {
	window := settings.Window
	if window < 1 {
		window = DefaultContextWindow
	}
	maxLines := settings.MaxLines
	if maxLines < 0 {
		maxLines = 0
	}
	return &RelevanceReducer{
		include:  normaliseKeywords(settings.Include),
		exclude:  normaliseKeywords(settings.Exclude),
		window:   window,
		maxLines: maxLines,
	}
}

// normaliseKeywords lowercases, trims and de-duplicates keywords, keeping order.
func normaliseKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// SplitLines splits text into lines, accepting both LF and CRLF endings.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// classify returns the first inclusion keyword of a line, or "" when the line
// is not a seed. excluded is true when an exclusion keyword matched.
func (r *RelevanceReducer) classify(line string) (keyword string, excluded bool) {
	lower := strings.ToLower(line)
	for _, ex := range r.exclude {
		if strings.Contains(lower, ex) {
			return "", true
		}
	}
	for _, in := range r.include {
		if strings.Contains(lower, in) {
			return in, false
		}
	}
	return "", false
}

// Seeds returns the indices of seed lines: at least one inclusion keyword and
// no exclusion keyword. Exclusion always wins.
func (r *RelevanceReducer) Seeds(lines []string) []int {
	var seeds []int
	for i, line := range lines {
		if kw, _ := r.classify(line); kw != "" {
			seeds = append(seeds, i)
		}
	}
	return seeds
}

// Select returns the indices of relevant lines in ascending order: each seed i
// marks [i, i+window-1], clipped to the document. The line cap is applied last.
func (r *RelevanceReducer) Select(lines []string) []int {
	indices, _ := r.selectWithStats(lines)
	return indices
}

func (r *RelevanceReducer) selectWithStats(lines []string) ([]int, domain.ReductionStats) {
	stats := domain.ReductionStats{
		TotalLines:  len(lines),
		KeywordHits: make(map[string]int),
	}

	marked := make([]bool, len(lines))
	for i, line := range lines {
		stats.TotalChars += len(line)
		kw, excluded := r.classify(line)
		if excluded {
			stats.ExcludedLines++
			continue
		}
		if kw == "" {
			continue
		}
		stats.Seeds++
		stats.KeywordHits[kw]++
		end := i + r.window
		if end > len(lines) {
			end = len(lines)
		}
		for j := i; j < end; j++ {
			marked[j] = true
		}
	}
	if len(lines) > 1 {
		stats.TotalChars += len(lines) - 1
	}

	var indices []int
	for i, m := range marked {
		if m {
			indices = append(indices, i)
		}
	}
	if r.maxLines > 0 && len(indices) > r.maxLines {
		indices = indices[:r.maxLines]
		stats.Truncated = true
	}
	stats.SelectedLines = len(indices)
	return indices, stats
}

// Reduce selects the relevant lines of text. A document without seed lines
// yields an empty excerpt, which downstream treats as "no assets".
func (r *RelevanceReducer) Reduce(id domain.DocumentID, text string) *domain.Excerpt {
	lines := SplitLines(text)
	indices, stats := r.selectWithStats(lines)

	excerpt := &domain.Excerpt{
		Document: id,
		Lines:    make([]domain.ExcerptLine, len(indices)),
		Stats:    stats,
	}
	for k, i := range indices {
		excerpt.Lines[k] = domain.ExcerptLine{Number: i + 1, Text: lines[i]}
	}

	log := logger.For("reduce")
	log.Debug("%s: %d lines, %d excluded, %d seeds, %d selected (%.1f%% of text)",
		id, stats.TotalLines, stats.ExcludedLines, stats.Seeds, stats.SelectedLines,
		excerpt.CompressionRatio()*100)
	if stats.Truncated {
		log.Warn("%s: excerpt capped at %d lines", id, r.maxLines)
	}
	return excerpt
}
