// Package orchestrator drives an evaluation session through normalization,
// local transcription, the confirmation-gated remote fallback, and transcript
// assembly.
package orchestrator

import (
	"fmt"
	"sync"
)

// State represents the lifecycle state of one evaluation session.
type State int

const (
	// StateIdle - Session created, no work started.
	StateIdle State = iota
	// StateNormalizing - Decoding and resampling the uploaded audio.
	StateNormalizing
	// StateAttemptingLocal - Local engine is transcribing.
	StateAttemptingLocal
	// StateLocalSucceeded - Local engine produced a transcript.
	StateLocalSucceeded
	// StateAwaitingConfirmation - Local path failed, waiting for the user to
	// approve the metered remote fallback.
	StateAwaitingConfirmation
	// StateRemoteFallback - Chunked remote transcription in flight.
	StateRemoteFallback
	// StateAssembling - Joining transcript fragments into the final text.
	StateAssembling
	// StateDone - Transcript assembled. Terminal.
	StateDone
	// StateCancelled - User declined the fallback. Terminal.
	StateCancelled
	// StateFailed - Unrecoverable error. Terminal.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateNormalizing:
		return "NORMALIZING"
	case StateAttemptingLocal:
		return "ATTEMPTING_LOCAL"
	case StateLocalSucceeded:
		return "LOCAL_SUCCEEDED"
	case StateAwaitingConfirmation:
		return "AWAITING_CONFIRMATION"
	case StateRemoteFallback:
		return "REMOTE_FALLBACK"
	case StateAssembling:
		return "ASSEMBLING"
	case StateDone:
		return "DONE"
	case StateCancelled:
		return "CANCELLED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if no further transitions are allowed.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateCancelled || s == StateFailed
}

// validTransitions lists every allowed state change. Terminal states have
// no outgoing edges.
var validTransitions = map[State][]State{
	StateIdle:                 {StateNormalizing, StateFailed},
	StateNormalizing:          {StateAttemptingLocal, StateAwaitingConfirmation, StateDone, StateFailed},
	StateAttemptingLocal:      {StateLocalSucceeded, StateAwaitingConfirmation, StateFailed},
	StateLocalSucceeded:       {StateAssembling, StateFailed},
	StateAwaitingConfirmation: {StateRemoteFallback, StateCancelled, StateFailed},
	StateRemoteFallback:       {StateAssembling, StateFailed},
	StateAssembling:           {StateDone, StateFailed},
}

// Lifecycle tracks the state machine for a single session.
// Thread-safe for concurrent access.
type Lifecycle struct {
	mu        sync.RWMutex
	sessionId string
	state     State
}

// NewLifecycle creates a lifecycle in IDLE state.
func NewLifecycle(sessionId string) *Lifecycle {
	return &Lifecycle{sessionId: sessionId, state: StateIdle}
}

// SessionId returns the session ID.
func (l *Lifecycle) SessionId() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sessionId
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// IsTerminal returns true once the session reached a terminal state.
func (l *Lifecycle) IsTerminal() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.IsTerminal()
}

// Transition moves the session to the next state, validating the edge.
func (l *Lifecycle) Transition(next State) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, allowed := range validTransitions[l.state] {
		if allowed == next {
			l.state = next
			return nil
		}
	}
	return fmt.Errorf("invalid transition %v -> %v for session %s", l.state, next, l.sessionId)
}
