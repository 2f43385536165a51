package logic

import "time"

// DefaultIntensityAlpha is the smoothing factor for the intensity average.
const DefaultIntensityAlpha = 0.9

// FlameDetector derives fire detection from a single direct read per tick.
// Detection has no filtering or hysteresis. The analog intensity is smoothed
// for display only and never takes part in the decision, so a stuck analog
// line cannot hold the alarm on.
type FlameDetector struct {
	alpha     float64
	detected  bool
	intensity float64
	raw       int
	primed    bool
}

// NewFlameDetector creates a detector with the given smoothing factor.
// Values outside [0, 1) fall back to DefaultIntensityAlpha.
func NewFlameDetector(alpha float64) *FlameDetector {
	if alpha < 0 || alpha >= 1 {
		alpha = DefaultIntensityAlpha
	}
	return &FlameDetector{alpha: alpha}
}

// Update takes the raw digital level for one tick. It returns an event when
// detection changed.
func (f *FlameDetector) Update(level bool, polarity Polarity, now time.Time) *Event {
	detected := polarity.Active(level)
	if detected == f.detected {
		return nil
	}
	f.detected = detected

	msg := "Fire cleared"
	if detected {
		msg = "FIRE DETECTED"
	}
	return &Event{
		Timestamp: now,
		Channel:   ChannelFlame,
		Kind:      EventDetect,
		Active:    detected,
		Message:   msg,
	}
}

// Smooth folds one analog intensity sample into the moving average. The
// first sample primes it.
func (f *FlameDetector) Smooth(intensity int) {
	f.raw = intensity
	if !f.primed {
		f.intensity = float64(intensity)
		f.primed = true
		return
	}
	f.intensity = f.alpha*f.intensity + (1-f.alpha)*float64(intensity)
}

// Detected returns the detection state from the last read.
func (f *FlameDetector) Detected() bool {
	return f.detected
}

// Intensity returns the smoothed intensity.
func (f *FlameDetector) Intensity() float64 {
	return f.intensity
}

// RawIntensity returns the last unsmoothed intensity sample.
func (f *FlameDetector) RawIntensity() int {
	return f.raw
}
