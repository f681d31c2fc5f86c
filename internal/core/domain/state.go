package domain

// DocumentState is the position of a document in the pipeline state machine.
type DocumentState string

// Document states.
const (
	// StatePending means no raw text is available yet.
	StatePending DocumentState = "pending"

	// StateTextReady means raw or translated text is available.
	StateTextReady DocumentState = "text_ready"

	// StateExcerptExtracted means a structured result has been written.
	StateExcerptExtracted DocumentState = "excerpt_extracted"

	// StateFlattened is the successful terminal state.
	StateFlattened DocumentState = "flattened"

	// StateFailed is reached on a non-transient error at any transition.
	// It is terminal for the current run; the next run retries the failed stage.
	StateFailed DocumentState = "failed"
)

// AllStates returns every state in display order.
func AllStates() []DocumentState {
	return []DocumentState{StatePending, StateTextReady, StateExcerptExtracted, StateFlattened, StateFailed}
}

// IsTerminal reports whether no further transition happens within a run.
func (s DocumentState) IsTerminal() bool {
	return s == StateFlattened || s == StateFailed
}

// CanTransition reports whether moving from s to next is allowed.
func (s DocumentState) CanTransition(next DocumentState) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StateFailed {
		return true
	}
	switch s {
	case StatePending:
		return next == StateTextReady
	case StateTextReady:
		return next == StateExcerptExtracted
	case StateExcerptExtracted:
		return next == StateFlattened
	default:
		return false
	}
}

// String returns the string representation.
func (s DocumentState) String() string {
	return string(s)
}

// StateFromArtifacts derives a document's state from the latest persisted stage.
// An empty latest stage means nothing has been written.
func StateFromArtifacts(latest Stage) DocumentState {
	switch latest {
	case StageRawText, StageTranslatedText:
		return StateTextReady
	case StageStructuredResult:
		return StateExcerptExtracted
	case StageFlattenedRows:
		return StateFlattened
	default:
		return StatePending
	}
}

// StateAfter returns the state reached when a stage's output is written.
func StateAfter(output Stage) DocumentState {
	return StateFromArtifacts(output)
}
