// Package progress renders live pipeline progress with bubbletea.
package progress

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/permit-assets/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/permit-assets/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/permit-assets/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
)

const maxBarWidth = 60

// Model is the progress view state.
type Model struct {
	keys   *keymap.KeyMap
	styles *styles.Styles
	bar    progress.Model
	help   help.Model

	step      string
	total     int
	processed int
	skipped   int
	failed    int
	last      domain.DocumentID

	finished    []domain.RunSummary
	showDetails bool

	onCancel  func()
	cancelled bool
	quitting  bool
}

// NewModel creates a progress model. onCancel is called once when the user
// asks to stop the run; it may be nil.
func NewModel(onCancel func()) Model {
	return Model{
		keys:        keymap.DefaultKeyMap(),
		styles:      styles.DefaultStyles(),
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithWidth(maxBarWidth)),
		help:        help.New(),
		showDetails: true,
		onCancel:    onCancel,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Cancel):
			if !m.cancelled {
				m.cancelled = true
				if m.onCancel != nil {
					m.onCancel()
				}
			}
		case key.Matches(msg, m.keys.Details):
			m.showDetails = !m.showDetails
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-4, maxBarWidth)
		return m, nil

	case messages.StageStarted:
		m.step = msg.Step
		m.total = msg.Total
		m.processed, m.skipped, m.failed = 0, 0, 0
		m.last = ""
		return m, m.bar.SetPercent(0)

	case messages.DocumentDone:
		switch msg.Outcome {
		case driven.OutcomeProcessed:
			m.processed++
		case driven.OutcomeSkipped:
			m.skipped++
		case driven.OutcomeFailed:
			m.failed++
		}
		m.last = msg.Document
		return m, m.bar.SetPercent(m.percent())

	case messages.StageFinished:
		m.finished = append(m.finished, msg.Summary)
		return m, nil

	case messages.RunFinished:
		m.quitting = true
		return m, tea.Quit

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		if b, ok := bar.(progress.Model); ok {
			m.bar = b
		}
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	if m.showDetails {
		for _, s := range m.finished {
			b.WriteString(m.summaryLine(s))
			b.WriteString("\n")
		}
	}
	if m.quitting {
		return b.String()
	}

	if m.step == "" {
		b.WriteString(m.styles.Muted.Render("Loading documents..."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.styles.Subtitle.Render(m.step))
		b.WriteString(fmt.Sprintf("  %d/%d", m.done(), m.total))
		if m.last != "" {
			b.WriteString("  ")
			b.WriteString(m.styles.Muted.Render(string(m.last)))
		}
		b.WriteString("\n")
		b.WriteString(m.bar.View())
		b.WriteString("\n")
	}

	if m.cancelled {
		b.WriteString(m.styles.Warning.Render("Cancelling after in-flight documents finish..."))
	} else {
		b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) done() int {
	return m.processed + m.skipped + m.failed
}

func (m Model) percent() float64 {
	if m.total == 0 {
		return 1
	}
	return float64(m.done()) / float64(m.total)
}

func (m Model) summaryLine(s domain.RunSummary) string {
	line := fmt.Sprintf("%-9s %s %s %s %s",
		s.Step,
		m.styles.Success.Render(fmt.Sprintf("processed=%d", s.Processed)),
		m.styles.Warning.Render(fmt.Sprintf("skipped=%d", s.Skipped)),
		m.styles.Error.Render(fmt.Sprintf("failed=%d", s.Failed)),
		m.styles.Muted.Render(s.Duration.Round(time.Millisecond).String()),
	)
	if s.Cancelled {
		line += " " + m.styles.Warning.Render("(cancelled)")
	}
	return line
}
