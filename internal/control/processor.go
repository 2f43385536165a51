package control

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/binwatch/internal/eventlog"
	"github.com/sweeney/binwatch/internal/logic"
)

// MaxSilence caps a single silence request.
const MaxSilence = 24 * time.Hour

// Processor applies commands to the tunables and records an audit entry for
// each accepted command. It must only be called from the control loop.
type Processor struct {
	tunables *Tunables
	events   *eventlog.Log
}

// NewProcessor creates a processor writing to tunables and events.
func NewProcessor(tunables *Tunables, events *eventlog.Log) *Processor {
	return &Processor{tunables: tunables, events: events}
}

// Tunables returns the tunables for reading.
func (p *Processor) Tunables() *Tunables {
	return p.tunables
}

// Apply executes cmd at time now. A returned error means nothing changed.
func (p *Processor) Apply(cmd Command, now time.Time) error {
	msg, err := p.apply(cmd, now)
	if err != nil {
		log.Warn().Err(err).Str("command", cmd.Name()).Msg("command rejected")
		return err
	}
	if msg != "" {
		p.events.Append(now, msg)
	}
	log.Info().Str("command", cmd.Name()).Str("audit", msg).Msg("command applied")
	return nil
}

func (p *Processor) apply(cmd Command, now time.Time) (string, error) {
	t := p.tunables

	switch c := cmd.(type) {
	case SetFlameThreshold:
		t.flameThreshold = clampInt(c.Value, 0, MaxADC)
		return fmt.Sprintf("Flame threshold set to %d", t.flameThreshold), nil

	case SetMuted:
		t.muted = c.Muted
		if c.Muted {
			return "Buzzer muted", nil
		}
		return "Buzzer unmuted", nil

	case Silence:
		if c.Duration < 0 {
			return "", fmt.Errorf("%w: silence %v", ErrOutOfRange, c.Duration)
		}
		d := clampDuration(c.Duration, 0, MaxSilence)
		t.silencedUntil = now.Add(d)
		return fmt.Sprintf("Buzzer silenced for %ds", int64(d/time.Second)), nil

	case Unsilence:
		t.silencedUntil = time.Time{}
		return "Buzzer unsilenced", nil

	case FlipPolarity:
		ch := t.channelRef(c.Channel)
		if ch == nil {
			return "", fmt.Errorf("%w: polarity of %s", ErrReadOnly, c.Channel)
		}
		ch.Polarity = ch.Polarity.Flip()
		return fmt.Sprintf("%s polarity -> %s", c.Channel.Label(), ch.Polarity), nil

	case SetQuorum:
		if c.Value < 1 || c.Value > t.fill.BurstSize {
			return "", fmt.Errorf("%w: quorum %d not in [1, %d]", ErrOutOfRange, c.Value, t.fill.BurstSize)
		}
		t.fill.Quorum = c.Value
		return fmt.Sprintf("Fill quorum set to %d/%d", t.fill.Quorum, t.fill.BurstSize), nil

	case SetBurstSize:
		t.fill.BurstSize = logic.ClampBurst(c.Value)
		t.fill.Quorum = logic.ClampQuorum(t.fill.Quorum, t.fill.BurstSize)
		return fmt.Sprintf("Fill burst size set to %d (quorum %d)", t.fill.BurstSize, t.fill.Quorum), nil

	case SetStabilityWindow:
		ch := t.channelRef(c.Channel)
		if ch == nil {
			return "", fmt.Errorf("%w: stability of %s", ErrReadOnly, c.Channel)
		}
		ch.Stability = clampDuration(c.Window, 0, MaxStabilityWindow)
		return fmt.Sprintf("%s stability window set to %dms", c.Channel.Label(), ch.Stability.Milliseconds()), nil

	case ClearEvents:
		// Clearing leaves the log empty, so there is no audit entry.
		p.events.Clear()
		return "", nil
	}

	return "", fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
}
