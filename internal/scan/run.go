package scan

import (
	"fmt"
	"sync"
	"time"
)

// State is one stage of a run's lifecycle.
type State string

const (
	StatePending          State = "pending"
	StateUniverseResolved State = "universe_resolved"
	StateDataFetched      State = "data_fetched"
	StateScored           State = "scored"
	StateSelected         State = "selected"
	StateCompleted        State = "completed"
	StateFailed           State = "failed"
)

// legal maps each state to the states it may advance to. Any state may
// fail.
var legal = map[State][]State{
	StatePending:          {StateUniverseResolved, StateFailed},
	StateUniverseResolved: {StateDataFetched, StateFailed},
	StateDataFetched:      {StateScored, StateFailed},
	StateScored:           {StateSelected, StateFailed},
	StateSelected:         {StateCompleted, StateFailed},
	StateCompleted:        {},
	StateFailed:           {},
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

type runState struct {
	state     State
	cancelled bool
	updatedAt time.Time
}

// Tracker holds the shared state of active runs, keyed by run id.
// Transitions are applied atomically under one lock so concurrent runs
// never observe a half-applied update.
type Tracker struct {
	mu   sync.Mutex
	runs map[string]*runState
	now  func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		runs: make(map[string]*runState),
		now:  time.Now,
	}
}

// Begin registers a new run in the pending state.
func (t *Tracker) Begin(runID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs[runID] = &runState{state: StatePending, updatedAt: t.now()}
}

// Advance applies one state transition. Illegal transitions and unknown
// runs are rejected.
func (t *Tracker) Advance(runID string, to State) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rs, ok := t.runs[runID]
	if !ok {
		return fmt.Errorf("unknown run %s", runID)
	}
	for _, next := range legal[rs.state] {
		if next == to {
			rs.state = to
			rs.updatedAt = t.now()
			return nil
		}
	}
	return fmt.Errorf("run %s: illegal transition %s -> %s", runID, rs.state, to)
}

// Cancel marks a run cancelled. In-flight and future steps short-circuit
// at their next checkpoint; already-dispatched provider calls finish.
func (t *Tracker) Cancel(runID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rs, ok := t.runs[runID]; ok {
		rs.cancelled = true
		rs.updatedAt = t.now()
	}
}

// Cancelled reports whether the run has been marked cancelled.
func (t *Tracker) Cancelled(runID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	rs, ok := t.runs[runID]
	return ok && rs.cancelled
}

// State returns the current state of a run, or "" if unknown.
func (t *Tracker) State(runID string) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rs, ok := t.runs[runID]; ok {
		return rs.state
	}
	return ""
}

// Active returns the non-terminal runs and their states.
func (t *Tracker) Active() map[string]State {
	t.mu.Lock()
	defer t.mu.Unlock()
	active := make(map[string]State)
	for id, rs := range t.runs {
		if !rs.state.Terminal() {
			active[id] = rs.state
		}
	}
	return active
}

// Forget drops a terminal run from the tracker.
func (t *Tracker) Forget(runID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rs, ok := t.runs[runID]; ok && rs.state.Terminal() {
		delete(t.runs, runID)
	}
}
