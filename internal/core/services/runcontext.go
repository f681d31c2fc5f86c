package services

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/logger"
)

// RunContext holds the state of one pipeline run. It is created per run and
// passed explicitly to the orchestrator and stage runner; nothing survives
// between runs except artifacts.
type RunContext struct {
	ID        string
	StartedAt time.Time

	mu       sync.Mutex
	states   map[domain.DocumentID]domain.DocumentState
	failures map[domain.DocumentID]domain.DocumentFailure
	dropped  int
}

// NewRunContext creates a run context with a fresh run ID.
func NewRunContext() *RunContext {
	return &RunContext{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		states:    make(map[domain.DocumentID]domain.DocumentState),
		failures:  make(map[domain.DocumentID]domain.DocumentFailure),
	}
}

// Init sets the starting state of a document.
func (rc *RunContext) Init(id domain.DocumentID, state domain.DocumentState) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.states[id] = state
}

// State returns the current state of a document. Unknown documents are pending.
func (rc *RunContext) State(id domain.DocumentID) domain.DocumentState {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if s, ok := rc.states[id]; ok {
		return s
	}
	return domain.StatePending
}

// Advance moves a document to next if the state machine allows it.
// Moving to the current state is a no-op.
func (rc *RunContext) Advance(id domain.DocumentID, next domain.DocumentState) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	cur, ok := rc.states[id]
	if !ok {
		cur = domain.StatePending
	}
	if cur == next {
		return true
	}
	if !cur.CanTransition(next) {
		logger.Debug("%s: ignoring transition %s -> %s", id, cur, next)
		return false
	}
	rc.states[id] = next
	return true
}

// Fail marks a document failed for the rest of the run.
func (rc *RunContext) Fail(id domain.DocumentID, stage domain.Stage, err error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.states[id] = domain.StateFailed
	rc.failures[id] = domain.DocumentFailure{Document: id, Stage: stage, Err: err}
}

// Failure returns the failure recorded for a document in this run.
func (rc *RunContext) Failure(id domain.DocumentID) (domain.DocumentFailure, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	f, ok := rc.failures[id]
	return f, ok
}

// Filter returns the documents of ids whose state satisfies keep, in order.
func (rc *RunContext) Filter(ids []domain.DocumentID, keep func(domain.DocumentState) bool) []domain.DocumentID {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	out := make([]domain.DocumentID, 0, len(ids))
	for _, id := range ids {
		s, ok := rc.states[id]
		if !ok {
			s = domain.StatePending
		}
		if keep(s) {
			out = append(out, id)
		}
	}
	return out
}

// Counts returns the number of documents per state.
func (rc *RunContext) Counts() map[domain.DocumentState]int {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	counts := make(map[domain.DocumentState]int, len(domain.AllStates()))
	for _, s := range domain.AllStates() {
		counts[s] = 0
	}
	for _, s := range rc.states {
		counts[s]++
	}
	return counts
}

// AddDropped counts extracted entries discarded for lacking an asset type.
func (rc *RunContext) AddDropped(n int) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.dropped += n
}

// Dropped returns the number of discarded entries.
func (rc *RunContext) Dropped() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.dropped
}
