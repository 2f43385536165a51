// Package logic implements the signal-conditioning pipeline for the bin sensors.
// It is pure logic with no I/O dependencies, making it fully testable.
package logic

import "time"

// Channel identifies a sensor input.
type Channel string

const (
	ChannelFlame Channel = "flame"
	ChannelFill  Channel = "fill"
	ChannelTilt  Channel = "tilt"
)

// Label returns the channel name used in event log messages.
func (c Channel) Label() string {
	switch c {
	case ChannelFlame:
		return "Flame"
	case ChannelFill:
		return "Fill"
	case ChannelTilt:
		return "Tilt"
	}
	return string(c)
}

// ParseChannel maps a channel name to a Channel.
func ParseChannel(s string) (Channel, bool) {
	switch Channel(s) {
	case ChannelFlame, ChannelFill, ChannelTilt:
		return Channel(s), true
	}
	return "", false
}

// Polarity is the convention that maps a raw line level to "active".
type Polarity string

const (
	ActiveHigh Polarity = "active-high"
	ActiveLow  Polarity = "active-low"
)

// Active reports whether the raw level means active under this polarity.
func (p Polarity) Active(level bool) bool {
	if p == ActiveLow {
		return !level
	}
	return level
}

// Flip returns the opposite polarity.
func (p Polarity) Flip() Polarity {
	if p == ActiveLow {
		return ActiveHigh
	}
	return ActiveLow
}

// ParsePolarity accepts "active-high"/"high" and "active-low"/"low".
func ParsePolarity(s string) (Polarity, bool) {
	switch s {
	case "active-high", "high":
		return ActiveHigh, true
	case "active-low", "low":
		return ActiveLow, true
	}
	return "", false
}

// EventKind classifies a pipeline transition.
type EventKind string

const (
	EventStable EventKind = "STABLE"
	EventLatch  EventKind = "LATCH"
	EventDetect EventKind = "DETECT"
)

// Event is a state transition worth recording in the event log.
type Event struct {
	Timestamp time.Time
	Channel   Channel
	Kind      EventKind
	Active    bool
	Message   string
}
