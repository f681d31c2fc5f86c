package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/permit-assets/internal/adapters/driving/tui/progress"
	"github.com/custodia-labs/permit-assets/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
)

var uiStyles = styles.DefaultStyles()

// newTable returns a table with the shared header and cell styles.
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(uiStyles.Theme().Border)).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return uiStyles.Header
			}
			return uiStyles.Cell
		})
}

// printStages prints one row per stage summary.
func printStages(cmd *cobra.Command, stages []domain.RunSummary) {
	if len(stages) == 0 {
		return
	}
	t := newTable("stage", "processed", "skipped", "failed", "duration")
	for _, s := range stages {
		name := s.Step
		if s.Cancelled {
			name += " (cancelled)"
		}
		t.Row(name,
			strconv.Itoa(s.Processed),
			strconv.Itoa(s.Skipped),
			strconv.Itoa(s.Failed),
			s.Duration.Round(time.Millisecond).String(),
		)
	}
	cmd.Println(t.Render())
}

// printStateCounts prints document counts per state in display order.
func printStateCounts(cmd *cobra.Command, counts map[domain.DocumentState]int) {
	t := newTable("state", "documents")
	for _, state := range domain.AllStates() {
		t.Row(uiStyles.State(state).Render(state.String()), strconv.Itoa(counts[state]))
	}
	cmd.Println(t.Render())
}

// printReport prints the outcome of a pipeline run.
func printReport(cmd *cobra.Command, report *domain.PipelineReport) {
	printStages(cmd, report.Stages)
	printStateCounts(cmd, report.States)

	if report.AwaitingText > 0 {
		cmd.Printf("Awaiting text: %d documents have no raw text yet\n", report.AwaitingText)
	}
	if report.DuplicateSites > 0 {
		cmd.Printf("Duplicate site rows ignored: %d\n", report.DuplicateSites)
	}
	if report.DroppedAssets > 0 {
		cmd.Printf("Entries dropped without asset_type: %d\n", report.DroppedAssets)
	}
	if n := len(report.MissingMetadata); n > 0 {
		cmd.Printf("Documents without site metadata: %d\n", n)
	}
	cmd.Printf("Rows: %d\n", report.Rows)

	for _, s := range report.Stages {
		for _, f := range s.Failures {
			cmd.Println(uiStyles.Error.Render(fmt.Sprintf("  %s %s: %v", s.Step, f.Document, f.Err)))
		}
	}
	if report.Cancelled {
		cmd.Println(uiStyles.Warning.Render("Run cancelled; rerun to resume."))
	}
}

// printKeywordHits prints the most frequent seed keywords.
func printKeywordHits(cmd *cobra.Command, hits []domain.KeywordCount) {
	if len(hits) == 0 {
		return
	}
	t := newTable("keyword", "hits")
	for _, h := range hits {
		t.Row(h.Keyword, strconv.Itoa(h.Count))
	}
	cmd.Println(t.Render())
}

// sortedKeys returns the keys of m in order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// progressRelay forwards events to a reporter chosen after services are built.
type progressRelay struct {
	mu     sync.RWMutex
	target driven.ProgressReporter
}

var _ driven.ProgressReporter = (*progressRelay)(nil)

func newProgressRelay() *progressRelay {
	return &progressRelay{target: driven.NopProgress{}}
}

func (r *progressRelay) set(target driven.ProgressReporter) {
	if target == nil {
		target = driven.NopProgress{}
	}
	r.mu.Lock()
	r.target = target
	r.mu.Unlock()
}

func (r *progressRelay) current() driven.ProgressReporter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.target
}

func (r *progressRelay) StageStarted(step string, total int) {
	r.current().StageStarted(step, total)
}

func (r *progressRelay) DocumentDone(step string, id domain.DocumentID, outcome driven.Outcome) {
	r.current().DocumentDone(step, id, outcome)
}

func (r *progressRelay) StageFinished(summary domain.RunSummary) {
	r.current().StageFinished(summary)
}

// lineProgress prints one line per stage boundary.
type lineProgress struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *lineProgress) StageStarted(step string, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s: %d documents\n", step, total)
}

func (p *lineProgress) DocumentDone(string, domain.DocumentID, driven.Outcome) {}

func (p *lineProgress) StageFinished(s domain.RunSummary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s: processed=%d skipped=%d failed=%d\n", s.Step, s.Processed, s.Skipped, s.Failed)
}

// isTerminal reports whether w is an interactive terminal.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// startProgress picks the live view on a terminal and line output elsewhere.
// The returned stop func must be called once the run returns.
func startProgress(cmd *cobra.Command, relay *progressRelay, cancel func()) func() {
	out := cmd.OutOrStdout()
	if !isTerminal(out) {
		relay.set(&lineProgress{out: out})
		return func() { relay.set(nil) }
	}

	reporter := progress.Start(os.Stdin, out, cancel)
	relay.set(reporter)
	return func() {
		relay.set(nil)
		if err := reporter.Stop(); err != nil {
			cmd.PrintErrf("warning: progress view: %v\n", err)
		}
	}
}

// maskAPIKey shows only the ends of a key.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
