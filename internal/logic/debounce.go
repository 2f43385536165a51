package logic

import "time"

// DebouncePhase names where a debouncer is in its cycle.
type DebouncePhase string

const (
	// PhaseCandidate means the latest verdict differs from the stable one
	// and has not yet held for the stability window.
	PhaseCandidate DebouncePhase = "CANDIDATE"
	// PhaseStable means candidate and stable verdicts agree.
	PhaseStable DebouncePhase = "STABLE"
)

// DebounceState is the stability debouncer state for one channel.
type DebounceState struct {
	Candidate      bool
	CandidateSince time.Time
	Stable         bool
	LastEdge       time.Time
}

// NewDebounceState returns an inactive state anchored at start.
func NewDebounceState(start time.Time) DebounceState {
	return DebounceState{CandidateSince: start, LastEdge: start}
}

// Phase returns the current phase.
func (s DebounceState) Phase() DebouncePhase {
	if s.Candidate != s.Stable {
		return PhaseCandidate
	}
	return PhaseStable
}

// Debounce feeds one verdict into the debouncer.
// A verdict that differs from the candidate restarts the candidate timer.
// The candidate is promoted to stable once it has held for window; promoted
// reports whether that happened on this call.
func Debounce(s DebounceState, verdict bool, now time.Time, window time.Duration) (next DebounceState, promoted bool) {
	next = s
	if verdict != next.Candidate {
		next.Candidate = verdict
		next.CandidateSince = now
	}
	if next.Candidate == next.Stable {
		return next, false
	}
	if now.Sub(next.CandidateSince) < window {
		return next, false
	}
	next.Stable = next.Candidate
	next.LastEdge = now
	return next, true
}
