package logic

import (
	"math"
	"testing"
)

func TestFlameDetectionIsImmediate(t *testing.T) {
	f := NewFlameDetector(DefaultIntensityAlpha)

	e := f.Update(false, ActiveLow, t0)
	if e == nil || !e.Active || e.Message != "FIRE DETECTED" {
		t.Fatalf("expected FIRE DETECTED on first low read, got %+v", e)
	}
	if !f.Detected() {
		t.Fatal("expected detected")
	}

	e = f.Update(true, ActiveLow, t0.Add(ms(50)))
	if e == nil || e.Active || e.Message != "Fire cleared" {
		t.Fatalf("expected Fire cleared on next tick, got %+v", e)
	}
	if f.Detected() {
		t.Fatal("expected not detected")
	}
}

func TestFlameNoEventWithoutEdge(t *testing.T) {
	f := NewFlameDetector(DefaultIntensityAlpha)
	for i := 0; i < 5; i++ {
		if e := f.Update(true, ActiveLow, t0.Add(ms(i*50))); e != nil {
			t.Fatalf("tick %d: unexpected event %+v", i, e)
		}
	}
}

func TestFlameIntensityDoesNotGateDetection(t *testing.T) {
	f := NewFlameDetector(DefaultIntensityAlpha)
	f.Smooth(4095)
	f.Update(true, ActiveLow, t0)
	if f.Detected() {
		t.Error("a saturated intensity must not cause detection")
	}
	f.Smooth(0)
	f.Update(false, ActiveLow, t0.Add(ms(50)))
	if !f.Detected() {
		t.Error("zero intensity must not suppress detection")
	}
}

func TestFlameIntensityMovingAverage(t *testing.T) {
	f := NewFlameDetector(0.5)
	f.Smooth(1000)
	if f.Intensity() != 1000 {
		t.Fatalf("first sample should prime the average, got %v", f.Intensity())
	}
	f.Smooth(2000)
	if math.Abs(f.Intensity()-1500) > 1e-9 {
		t.Errorf("expected 1500, got %v", f.Intensity())
	}
	if f.RawIntensity() != 2000 {
		t.Errorf("raw: got %d, want 2000", f.RawIntensity())
	}
}

func TestFlameInvalidAlphaFallsBack(t *testing.T) {
	f := NewFlameDetector(1.5)
	if f.alpha != DefaultIntensityAlpha {
		t.Errorf("alpha: got %v, want %v", f.alpha, DefaultIntensityAlpha)
	}
}
