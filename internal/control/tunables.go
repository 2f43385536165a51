// Package control owns the mutable tunables and the command processor that is
// the only path allowed to change them.
package control

import (
	"time"

	"github.com/sweeney/binwatch/internal/logic"
)

// MaxADC is the largest value the flame intensity converter produces.
const MaxADC = 4095

// MaxStabilityWindow bounds the configurable debounce window.
const MaxStabilityWindow = time.Minute

// ChannelTunables are the tunables owned by one conditioned channel.
type ChannelTunables struct {
	Polarity   logic.Polarity
	BurstSize  int
	Quorum     int
	Stability  time.Duration
	OnConfirm  time.Duration
	OffConfirm time.Duration
}

// Params returns the pipeline parameters for one step.
func (c ChannelTunables) Params() logic.Params {
	return logic.Params{
		Polarity:   c.Polarity,
		Quorum:     c.Quorum,
		Stability:  c.Stability,
		OnConfirm:  c.OnConfirm,
		OffConfirm: c.OffConfirm,
	}
}

// Defaults are the startup values for Tunables.
type Defaults struct {
	FlamePolarity  logic.Polarity
	FlameThreshold int
	Fill           ChannelTunables
	Tilt           ChannelTunables
}

// DefaultDefaults returns the reference configuration.
func DefaultDefaults() Defaults {
	return Defaults{
		FlamePolarity:  logic.ActiveLow,
		FlameThreshold: 1500,
		Fill: ChannelTunables{
			Polarity:   logic.ActiveLow,
			BurstSize:  15,
			Quorum:     12,
			Stability:  300 * time.Millisecond,
			OnConfirm:  1000 * time.Millisecond,
			OffConfirm: 3000 * time.Millisecond,
		},
		Tilt: ChannelTunables{
			Polarity:   logic.ActiveHigh,
			BurstSize:  15,
			Quorum:     10,
			Stability:  200 * time.Millisecond,
			OnConfirm:  500 * time.Millisecond,
			OffConfirm: 1500 * time.Millisecond,
		},
	}
}

// Tunables is the single aggregate of externally adjustable parameters.
// Fields are unexported: reads go through accessors and writes only through
// Processor. The flame polarity has no setter at all.
type Tunables struct {
	flamePolarity  logic.Polarity
	flameThreshold int
	fill           ChannelTunables
	tilt           ChannelTunables
	muted          bool
	silencedUntil  time.Time
}

// NewTunables creates Tunables from startup defaults, clamping where needed.
func NewTunables(d Defaults) *Tunables {
	t := &Tunables{
		flamePolarity:  d.FlamePolarity,
		flameThreshold: clampInt(d.FlameThreshold, 0, MaxADC),
		fill:           normalize(d.Fill),
		tilt:           normalize(d.Tilt),
	}
	if t.flamePolarity == "" {
		t.flamePolarity = logic.ActiveLow
	}
	return t
}

func normalize(c ChannelTunables) ChannelTunables {
	if c.Polarity == "" {
		c.Polarity = logic.ActiveHigh
	}
	c.BurstSize = logic.ClampBurst(c.BurstSize)
	c.Quorum = logic.ClampQuorum(c.Quorum, c.BurstSize)
	c.Stability = clampDuration(c.Stability, 0, MaxStabilityWindow)
	return c
}

// FlamePolarity is fixed at startup.
func (t *Tunables) FlamePolarity() logic.Polarity { return t.flamePolarity }

// FlameThreshold is shown next to the intensity reading. It does not affect detection.
func (t *Tunables) FlameThreshold() int { return t.flameThreshold }

// Fill returns a copy of the fill level channel tunables.
func (t *Tunables) Fill() ChannelTunables { return t.fill }

// Tilt returns a copy of the tilt channel tunables.
func (t *Tunables) Tilt() ChannelTunables { return t.tilt }

// Channel returns a copy of the tunables for a conditioned channel.
func (t *Tunables) Channel(c logic.Channel) (ChannelTunables, bool) {
	switch c {
	case logic.ChannelFill:
		return t.fill, true
	case logic.ChannelTilt:
		return t.tilt, true
	}
	return ChannelTunables{}, false
}

// Muted reports the buzzer mute flag.
func (t *Tunables) Muted() bool { return t.muted }

// SilencedUntil returns the silence deadline; zero means not silenced.
func (t *Tunables) SilencedUntil() time.Time { return t.silencedUntil }

func (t *Tunables) channelRef(c logic.Channel) *ChannelTunables {
	switch c {
	case logic.ChannelFill:
		return &t.fill
	case logic.ChannelTilt:
		return &t.tilt
	}
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampDuration(v, lo, hi time.Duration) time.Duration {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
