package logic

import "time"

// LatchPhase names the state of a confirm latch.
type LatchPhase string

const (
	PhaseUnlatched LatchPhase = "UNLATCHED"
	PhaseLatched   LatchPhase = "LATCHED"
)

// LatchState is the hysteretic latch state for one channel.
type LatchState struct {
	Latched bool
}

// Phase returns the current phase.
func (l LatchState) Phase() LatchPhase {
	if l.Latched {
		return PhaseLatched
	}
	return PhaseUnlatched
}

// Confirm applies the asymmetric confirmation delays to the debounced state.
// The latch turns on once stable has been true for onConfirm since the last
// stability edge, and off once stable has been false for offConfirm.
func Confirm(l LatchState, d DebounceState, now time.Time, onConfirm, offConfirm time.Duration) (next LatchState, changed bool) {
	if d.Stable == l.Latched {
		return l, false
	}
	held := now.Sub(d.LastEdge)
	if d.Stable && held >= onConfirm {
		return LatchState{Latched: true}, true
	}
	if !d.Stable && held >= offConfirm {
		return LatchState{Latched: false}, true
	}
	return l, false
}
