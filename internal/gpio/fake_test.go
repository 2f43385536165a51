package gpio

import (
	"errors"
	"testing"
)

func TestFakeSamplerDefaults(t *testing.T) {
	f := NewFakeSampler()

	level, err := f.ReadFlame()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	intensity, err := f.ReadIntensity()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if level || intensity != 0 {
		t.Errorf("expected (false, 0), got (%v, %d)", level, intensity)
	}
	fill, err := f.ReadFill()
	if err != nil || fill {
		t.Errorf("expected fill low, got %v (%v)", fill, err)
	}
	tilt, err := f.ReadTilt()
	if err != nil || tilt {
		t.Errorf("expected tilt low, got %v (%v)", tilt, err)
	}
}

func TestFakeSamplerFillSequenceCycles(t *testing.T) {
	f := NewFakeSampler()
	f.SetFillSequence([]bool{true, false, true})

	want := []bool{true, false, true, true, false, true, true}
	for i, w := range want {
		got, err := f.ReadFill()
		if err != nil {
			t.Fatalf("read %d: unexpected error: %v", i, err)
		}
		if got != w {
			t.Errorf("read %d: got %v, want %v", i, got, w)
		}
	}
	if f.FillReads != len(want) {
		t.Errorf("FillReads: got %d, want %d", f.FillReads, len(want))
	}
}

func TestFakeSamplerSetters(t *testing.T) {
	f := NewFakeSampler()
	f.SetFlame(true, 812)
	f.SetTilt(true)
	f.SetFill(true)

	level, _ := f.ReadFlame()
	intensity, _ := f.ReadIntensity()
	if !level || intensity != 812 {
		t.Errorf("flame: got (%v, %d), want (true, 812)", level, intensity)
	}
	if tilt, _ := f.ReadTilt(); !tilt {
		t.Error("expected tilt high")
	}
	if fill, _ := f.ReadFill(); !fill {
		t.Error("expected fill high")
	}
}

func TestFakeSamplerError(t *testing.T) {
	f := NewFakeSampler()
	f.SetError(errors.New("simulated error"))

	if _, err := f.ReadFlame(); err == nil {
		t.Error("expected flame error")
	}
	if _, err := f.ReadIntensity(); err == nil {
		t.Error("expected intensity error")
	}
	if _, err := f.ReadFill(); err == nil {
		t.Error("expected fill error")
	}
	if _, err := f.ReadTilt(); err == nil {
		t.Error("expected tilt error")
	}

	f.SetError(nil)
	if _, err := f.ReadTilt(); err != nil {
		t.Errorf("unexpected error after clearing: %v", err)
	}
}

func TestFakeSamplerInputError(t *testing.T) {
	f := NewFakeSampler()
	f.SetFlame(false, 640)
	f.SetFill(true)
	f.SetInputError(InputIntensity, errors.New("adc timeout"))
	f.SetInputError(InputFill, errors.New("line busy"))

	if _, err := f.ReadIntensity(); err == nil {
		t.Error("expected intensity error")
	}
	if _, err := f.ReadFill(); err == nil {
		t.Error("expected fill error")
	}
	if level, err := f.ReadFlame(); err != nil || level {
		t.Errorf("flame: got %v (%v), want low with no error", level, err)
	}
	if _, err := f.ReadTilt(); err != nil {
		t.Errorf("tilt: unexpected error %v", err)
	}

	f.SetInputError(InputIntensity, nil)
	if v, err := f.ReadIntensity(); err != nil || v != 640 {
		t.Errorf("intensity after clearing: got %d (%v), want 640", v, err)
	}
	if _, err := f.ReadFill(); err == nil {
		t.Error("fill error should still be set")
	}
}

func TestFakeSamplerClose(t *testing.T) {
	f := NewFakeSampler()
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}

func TestFakeOutputsRecordsWrites(t *testing.T) {
	o := NewFakeOutputs()
	if _, ok := o.Last(); ok {
		t.Error("expected no writes initially")
	}
	o.Set(true, false, true)
	o.Set(false, true, false)

	last, ok := o.Last()
	if !ok {
		t.Fatal("expected a write")
	}
	if last != (OutputState{Green: true}) {
		t.Errorf("last: got %+v", last)
	}
	if len(o.Writes) != 2 {
		t.Errorf("writes: got %d, want 2", len(o.Writes))
	}

	o.SetError = errors.New("stuck")
	if err := o.Set(true, true, true); err == nil {
		t.Error("expected error")
	}
}

func TestDefaultPinsDistinct(t *testing.T) {
	p := DefaultPins()
	seen := map[int]bool{}
	for _, pin := range []int{p.Flame, p.Fill, p.Tilt, p.Red, p.Green, p.Buzzer} {
		if seen[pin] {
			t.Errorf("pin %d used twice", pin)
		}
		seen[pin] = true
	}
}
