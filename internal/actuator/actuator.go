// Package actuator drives the traffic lights and alarm buzzer from the flame
// detection state.
package actuator

import "time"

// Reference pulse timing.
const (
	DefaultBeepOn  = 200 * time.Millisecond
	DefaultBeepOff = 200 * time.Millisecond
)

// Phase is the buzzer pulse state.
type Phase string

const (
	PhaseIdle    Phase = "IDLE"
	PhaseBeepOn  Phase = "BEEP_ON"
	PhaseBeepOff Phase = "BEEP_OFF"
)

// Input is everything the controller reads on one iteration.
type Input struct {
	Detected      bool
	Muted         bool
	SilencedUntil time.Time // zero means not silenced
}

// Output is the desired state of the physical outputs.
type Output struct {
	Red    bool
	Green  bool
	Buzzer bool
}

// Controller runs the buzzer pulse state machine. It is driven by every
// control loop iteration, not by the sampling tick.
type Controller struct {
	beepOn  time.Duration
	beepOff time.Duration

	phase    Phase
	deadline time.Time // zero when no timer is pending
}

// New creates a controller with the given pulse on and off durations.
func New(beepOn, beepOff time.Duration) *Controller {
	if beepOn <= 0 {
		beepOn = DefaultBeepOn
	}
	if beepOff <= 0 {
		beepOff = DefaultBeepOff
	}
	return &Controller{beepOn: beepOn, beepOff: beepOff, phase: PhaseIdle}
}

// Silenced reports whether now falls before the silence deadline.
func Silenced(until, now time.Time) bool {
	return !until.IsZero() && now.Before(until)
}

// Update advances the state machine and returns the desired outputs.
func (c *Controller) Update(in Input, now time.Time) Output {
	out := Output{Red: in.Detected, Green: !in.Detected}

	if !in.Detected || in.Muted || Silenced(in.SilencedUntil, now) {
		c.phase = PhaseBeepOff
		c.deadline = time.Time{}
		return out
	}

	switch {
	case c.phase != PhaseBeepOn && c.deadline.IsZero():
		// Alarm just became audible: start with an off phase.
		c.phase = PhaseBeepOff
		c.deadline = now.Add(c.beepOff)
	case now.Before(c.deadline):
	case c.phase == PhaseBeepOn:
		c.phase = PhaseBeepOff
		c.deadline = now.Add(c.beepOff)
	default:
		c.phase = PhaseBeepOn
		c.deadline = now.Add(c.beepOn)
	}

	out.Buzzer = c.phase == PhaseBeepOn
	return out
}

// Phase returns the current pulse phase.
func (c *Controller) Phase() Phase {
	return c.phase
}

// Pending reports whether a pulse timer is armed.
func (c *Controller) Pending() bool {
	return !c.deadline.IsZero()
}
