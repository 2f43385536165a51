package logic

import "time"

// Params are the per-channel tunables a pipeline step runs with.
type Params struct {
	Polarity   Polarity
	Quorum     int
	Stability  time.Duration
	OnConfirm  time.Duration
	OffConfirm time.Duration
}

// PipelineView is a read-only copy of a pipeline's state.
type PipelineView struct {
	Channel     Channel
	ActiveCount int
	BurstSize   int
	Majority    bool
	Candidate   bool
	Stable      bool
	Latched     bool
	Debounce    DebouncePhase
	Latch       LatchPhase
	LastEdge    time.Time
}

// Pipeline composes majority filter, stability debouncer and confirm latch
// for one channel.
type Pipeline struct {
	channel  Channel
	debounce DebounceState
	latch    LatchState
	active   int
	burst    int
	majority bool
}

// NewPipeline creates an inactive pipeline anchored at start.
func NewPipeline(channel Channel, start time.Time) *Pipeline {
	return &Pipeline{
		channel:  channel,
		debounce: NewDebounceState(start),
	}
}

// Step processes one burst of raw levels and returns any transitions.
// Stability events are emitted before latch events.
func (p *Pipeline) Step(levels []bool, params Params, now time.Time) []Event {
	p.burst = len(levels)
	p.active = CountActive(levels, params.Polarity)
	p.majority = Majority(p.active, ClampQuorum(params.Quorum, p.burst))

	var events []Event

	var promoted bool
	p.debounce, promoted = Debounce(p.debounce, p.majority, now, params.Stability)
	if promoted {
		events = append(events, Event{
			Timestamp: now,
			Channel:   p.channel,
			Kind:      EventStable,
			Active:    p.debounce.Stable,
			Message:   stableMessage(p.channel, p.debounce.Stable),
		})
	}

	var changed bool
	p.latch, changed = Confirm(p.latch, p.debounce, now, params.OnConfirm, params.OffConfirm)
	if changed {
		events = append(events, Event{
			Timestamp: now,
			Channel:   p.channel,
			Kind:      EventLatch,
			Active:    p.latch.Latched,
			Message:   latchMessage(p.channel, p.latch.Latched),
		})
	}

	return events
}

// Latched returns the latched verdict.
func (p *Pipeline) Latched() bool {
	return p.latch.Latched
}

// View returns a copy of the current state.
func (p *Pipeline) View() PipelineView {
	return PipelineView{
		Channel:     p.channel,
		ActiveCount: p.active,
		BurstSize:   p.burst,
		Majority:    p.majority,
		Candidate:   p.debounce.Candidate,
		Stable:      p.debounce.Stable,
		Latched:     p.latch.Latched,
		Debounce:    p.debounce.Phase(),
		Latch:       p.latch.Phase(),
		LastEdge:    p.debounce.LastEdge,
	}
}

// FillPercent maps the fill latch to a displayed fill level.
// A sensor mounted at the top only trips when the bin is full.
func FillPercent(latched, topMounted bool) int {
	switch {
	case !latched:
		return 0
	case topMounted:
		return 100
	default:
		return 50
	}
}

func stableMessage(c Channel, active bool) string {
	if active {
		return c.Label() + " stable -> ACTIVE"
	}
	return c.Label() + " stable -> CLEAR"
}

func latchMessage(c Channel, latched bool) string {
	switch c {
	case ChannelFill:
		if latched {
			return "BIN FULL"
		}
		return "Bin level cleared"
	case ChannelTilt:
		if latched {
			return "TILT DETECTED"
		}
		return "Tilt cleared"
	}
	if latched {
		return c.Label() + " latched"
	}
	return c.Label() + " released"
}
