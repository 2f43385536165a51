package logic

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

const window = 300 * time.Millisecond

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func TestNewDebounceState(t *testing.T) {
	s := NewDebounceState(t0)
	if s.Stable || s.Candidate {
		t.Error("new state should be inactive")
	}
	if !s.CandidateSince.Equal(t0) || !s.LastEdge.Equal(t0) {
		t.Error("new state should be anchored at start")
	}
	if s.Phase() != PhaseStable {
		t.Errorf("phase: got %s, want STABLE", s.Phase())
	}
}

func TestDebouncePromotesAfterWindow(t *testing.T) {
	s := NewDebounceState(t0)

	s, promoted := Debounce(s, true, t0, window)
	if promoted {
		t.Fatal("should not promote on first differing verdict")
	}
	if s.Phase() != PhaseCandidate {
		t.Errorf("phase: got %s, want CANDIDATE", s.Phase())
	}
	if !s.CandidateSince.Equal(t0) {
		t.Errorf("CandidateSince: got %v, want %v", s.CandidateSince, t0)
	}

	s, promoted = Debounce(s, true, t0.Add(window-time.Millisecond), window)
	if promoted || s.Stable {
		t.Fatal("should not promote before the window elapses")
	}

	s, promoted = Debounce(s, true, t0.Add(window), window)
	if !promoted || !s.Stable {
		t.Fatal("should promote once the window elapses")
	}
	if !s.LastEdge.Equal(t0.Add(window)) {
		t.Errorf("LastEdge: got %v, want %v", s.LastEdge, t0.Add(window))
	}
	if s.Phase() != PhaseStable {
		t.Errorf("phase: got %s, want STABLE", s.Phase())
	}
}

func TestDebounceIgnoresJitterShorterThanWindow(t *testing.T) {
	s := NewDebounceState(t0)

	s, _ = Debounce(s, true, t0, window)
	s, _ = Debounce(s, false, t0.Add(ms(100)), window)
	for i := 0; i < 10; i++ {
		var promoted bool
		s, promoted = Debounce(s, false, t0.Add(ms(100+i*100)), window)
		if promoted {
			t.Fatalf("iteration %d: stable verdict changed after jitter", i)
		}
	}
	if s.Stable {
		t.Error("stable verdict should still be inactive")
	}
	if !s.LastEdge.Equal(t0) {
		t.Error("LastEdge should be untouched by jitter")
	}
}

func TestDebounceCandidateSinceOnlyMovesOnTransition(t *testing.T) {
	s := NewDebounceState(t0)
	s, _ = Debounce(s, true, t0.Add(ms(50)), window)
	s, _ = Debounce(s, true, t0.Add(ms(100)), window)
	s, _ = Debounce(s, true, t0.Add(ms(150)), window)
	if !s.CandidateSince.Equal(t0.Add(ms(50))) {
		t.Errorf("CandidateSince: got %v, want %v", s.CandidateSince, t0.Add(ms(50)))
	}
}

func TestDebounceRestartsOnBounce(t *testing.T) {
	s := NewDebounceState(t0)
	s, _ = Debounce(s, true, t0, window)
	s, _ = Debounce(s, false, t0.Add(ms(200)), window)
	s, _ = Debounce(s, true, t0.Add(ms(250)), window)

	// Full window from the first edge, but the candidate restarted at 250ms.
	s, promoted := Debounce(s, true, t0.Add(ms(300)), window)
	if promoted {
		t.Fatal("timer should have restarted on bounce")
	}
	_, promoted = Debounce(s, true, t0.Add(ms(550)), window)
	if !promoted {
		t.Fatal("should promote a full window after the last change")
	}
}

func TestDebounceClearTransition(t *testing.T) {
	s := NewDebounceState(t0)
	s, _ = Debounce(s, true, t0, window)
	s, _ = Debounce(s, true, t0.Add(window), window)

	off := t0.Add(ms(1000))
	s, _ = Debounce(s, false, off, window)
	s, promoted := Debounce(s, false, off.Add(window), window)
	if !promoted || s.Stable {
		t.Fatal("expected promotion to inactive")
	}
}

func TestDebounceZeroWindowPromotesImmediately(t *testing.T) {
	s, promoted := Debounce(NewDebounceState(t0), true, t0.Add(ms(5)), 0)
	if !promoted || !s.Stable {
		t.Fatal("zero window should promote on the first tick")
	}
}
