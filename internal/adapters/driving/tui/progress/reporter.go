package progress

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/permit-assets/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
)

// Ensure Reporter implements the interface.
var _ driven.ProgressReporter = (*Reporter)(nil)

// Reporter forwards pipeline progress events to a running bubbletea program.
type Reporter struct {
	program *tea.Program
	done    chan error
}

// Start launches the progress view on out, reading keys from in.
// A nil in disables keyboard input. onCancel is called when the user asks
// to stop the run.
func Start(in io.Reader, out io.Writer, onCancel func()) *Reporter {
	opts := []tea.ProgramOption{
		tea.WithOutput(out),
		tea.WithoutSignalHandler(),
	}
	if in == nil {
		opts = append(opts, tea.WithInput(nil))
	} else {
		opts = append(opts, tea.WithInput(in))
	}

	r := &Reporter{
		program: tea.NewProgram(NewModel(onCancel), opts...),
		done:    make(chan error, 1),
	}
	go func() {
		_, err := r.program.Run()
		r.done <- err
	}()
	return r
}

// StageStarted implements driven.ProgressReporter.
func (r *Reporter) StageStarted(step string, total int) {
	r.program.Send(messages.StageStarted{Step: step, Total: total})
}

// DocumentDone implements driven.ProgressReporter.
func (r *Reporter) DocumentDone(step string, id domain.DocumentID, outcome driven.Outcome) {
	r.program.Send(messages.DocumentDone{Step: step, Document: id, Outcome: outcome})
}

// StageFinished implements driven.ProgressReporter.
func (r *Reporter) StageFinished(summary domain.RunSummary) {
	r.program.Send(messages.StageFinished{Summary: summary})
}

// Stop closes the view and waits for the program to exit.
func (r *Reporter) Stop() error {
	r.program.Send(messages.RunFinished{})
	return <-r.done
}
