package logic

import (
	"testing"
	"time"
)

const (
	onConfirm  = 1000 * time.Millisecond
	offConfirm = 3000 * time.Millisecond
)

func stableAt(active bool, edge time.Time) DebounceState {
	return DebounceState{Candidate: active, CandidateSince: edge, Stable: active, LastEdge: edge}
}

func TestConfirmOnBoundary(t *testing.T) {
	d := stableAt(true, t0)

	l, changed := Confirm(LatchState{}, d, t0.Add(onConfirm-time.Millisecond), onConfirm, offConfirm)
	if changed || l.Latched {
		t.Fatal("latch must stay off one millisecond before onConfirm")
	}

	l, changed = Confirm(l, d, t0.Add(onConfirm), onConfirm, offConfirm)
	if !changed || !l.Latched {
		t.Fatal("latch must turn on exactly at onConfirm")
	}
	if l.Phase() != PhaseLatched {
		t.Errorf("phase: got %s, want LATCHED", l.Phase())
	}
}

func TestConfirmOffBoundary(t *testing.T) {
	d := stableAt(false, t0)
	latched := LatchState{Latched: true}

	l, changed := Confirm(latched, d, t0.Add(offConfirm-time.Millisecond), onConfirm, offConfirm)
	if changed || !l.Latched {
		t.Fatal("latch must stay on one millisecond before offConfirm")
	}

	l, changed = Confirm(l, d, t0.Add(offConfirm), onConfirm, offConfirm)
	if !changed || l.Latched {
		t.Fatal("latch must turn off exactly at offConfirm")
	}
	if l.Phase() != PhaseUnlatched {
		t.Errorf("phase: got %s, want UNLATCHED", l.Phase())
	}
}

func TestConfirmOffUsesLongerDelay(t *testing.T) {
	d := stableAt(false, t0)
	l, _ := Confirm(LatchState{Latched: true}, d, t0.Add(onConfirm), onConfirm, offConfirm)
	if !l.Latched {
		t.Error("clearing must wait for offConfirm, not onConfirm")
	}
}

func TestConfirmNoChangeWhenAgreeing(t *testing.T) {
	l, changed := Confirm(LatchState{Latched: true}, stableAt(true, t0), t0.Add(time.Hour), onConfirm, offConfirm)
	if changed || !l.Latched {
		t.Error("agreeing latch should not change")
	}
	l, changed = Confirm(LatchState{}, stableAt(false, t0), t0.Add(time.Hour), onConfirm, offConfirm)
	if changed || l.Latched {
		t.Error("agreeing latch should not change")
	}
}

func TestConfirmMeasuresFromLastEdge(t *testing.T) {
	// Stable flipped recently even though the debouncer started long ago.
	edge := t0.Add(10 * time.Second)
	d := stableAt(true, edge)
	l, _ := Confirm(LatchState{}, d, edge.Add(onConfirm/2), onConfirm, offConfirm)
	if l.Latched {
		t.Error("latch must count from the last stability edge")
	}
}
