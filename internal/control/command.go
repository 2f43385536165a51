package control

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/binwatch/internal/logic"
)

// DefaultSilence is used when silence is requested without a duration.
const DefaultSilence = 10 * time.Minute

// Errors returned for rejected commands. Rejected commands never change state.
var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrMissingParam   = errors.New("missing parameter")
	ErrMalformed      = errors.New("malformed parameter")
	ErrOutOfRange     = errors.New("parameter out of range")
	ErrReadOnly       = errors.New("read-only tunable")
)

// Command is one of the closed set of operations the processor accepts.
type Command interface {
	Name() string
	command()
}

type (
	// SetFlameThreshold stores the display threshold for flame intensity.
	SetFlameThreshold struct{ Value int }
	// SetMuted overrides the buzzer.
	SetMuted struct{ Muted bool }
	// Silence suppresses the buzzer until now + Duration.
	Silence struct{ Duration time.Duration }
	// Unsilence clears any silence deadline.
	Unsilence struct{}
	// FlipPolarity toggles the polarity of a conditioned channel.
	FlipPolarity struct{ Channel logic.Channel }
	// SetQuorum sets the fill level majority quorum.
	SetQuorum struct{ Value int }
	// SetBurstSize sets the number of fill level reads per tick.
	SetBurstSize struct{ Value int }
	// SetStabilityWindow sets the debounce window of a conditioned channel.
	SetStabilityWindow struct {
		Channel logic.Channel
		Window  time.Duration
	}
	// ClearEvents empties the event log.
	ClearEvents struct{}
)

func (SetFlameThreshold) Name() string  { return "set_flame_threshold" }
func (SetMuted) Name() string           { return "set_muted" }
func (Silence) Name() string            { return "silence" }
func (Unsilence) Name() string          { return "unsilence" }
func (FlipPolarity) Name() string       { return "flip_polarity" }
func (SetQuorum) Name() string          { return "set_quorum" }
func (SetBurstSize) Name() string       { return "set_burst_size" }
func (SetStabilityWindow) Name() string { return "set_stability_window" }
func (ClearEvents) Name() string        { return "clear_events" }

func (SetFlameThreshold) command()  {}
func (SetMuted) command()           {}
func (Silence) command()            {}
func (Unsilence) command()          {}
func (FlipPolarity) command()       {}
func (SetQuorum) command()          {}
func (SetBurstSize) command()       {}
func (SetStabilityWindow) command() {}
func (ClearEvents) command()        {}

type parser func(params map[string]string) (Command, error)

var parsers = map[string]parser{
	"set_flame_threshold": func(p map[string]string) (Command, error) {
		v, err := intParam(p, "value")
		if err != nil {
			return nil, err
		}
		return SetFlameThreshold{Value: v}, nil
	},
	"set_muted": func(p map[string]string) (Command, error) {
		v, err := boolParam(p, "muted")
		if err != nil {
			return nil, err
		}
		return SetMuted{Muted: v}, nil
	},
	"mute":   func(map[string]string) (Command, error) { return SetMuted{Muted: true}, nil },
	"unmute": func(map[string]string) (Command, error) { return SetMuted{Muted: false}, nil },
	"silence": func(p map[string]string) (Command, error) {
		if _, ok := lookup(p, "duration_ms"); !ok {
			return Silence{Duration: DefaultSilence}, nil
		}
		v, err := intParam(p, "duration_ms")
		if err != nil {
			return nil, err
		}
		if v < 0 {
			return nil, fmt.Errorf("%w: duration_ms=%d", ErrOutOfRange, v)
		}
		return Silence{Duration: time.Duration(v) * time.Millisecond}, nil
	},
	"unsilence": func(map[string]string) (Command, error) { return Unsilence{}, nil },
	"flip_polarity": func(p map[string]string) (Command, error) {
		c, err := channelParam(p)
		if err != nil {
			return nil, err
		}
		return FlipPolarity{Channel: c}, nil
	},
	"set_quorum": func(p map[string]string) (Command, error) {
		v, err := intParam(p, "value")
		if err != nil {
			return nil, err
		}
		return SetQuorum{Value: v}, nil
	},
	"set_burst_size": func(p map[string]string) (Command, error) {
		v, err := intParam(p, "value")
		if err != nil {
			return nil, err
		}
		return SetBurstSize{Value: v}, nil
	},
	"set_stability_window": func(p map[string]string) (Command, error) {
		c, err := channelParam(p)
		if err != nil {
			return nil, err
		}
		v, err := intParam(p, "ms")
		if err != nil {
			return nil, err
		}
		return SetStabilityWindow{Channel: c, Window: time.Duration(v) * time.Millisecond}, nil
	},
	"clear_events": func(map[string]string) (Command, error) { return ClearEvents{}, nil },
}

// Names returns the accepted command names in sorted order.
func Names() []string {
	names := make([]string, 0, len(parsers))
	for n := range parsers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Known reports whether name is an accepted command.
func Known(name string) bool {
	_, ok := parsers[name]
	return ok
}

// Parse validates a command name and its string parameters.
// Everything that reaches the processor has already passed this check.
func Parse(name string, params map[string]string) (Command, error) {
	p, ok := parsers[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	return p(params)
}

func lookup(p map[string]string, key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func intParam(p map[string]string, key string) (int, error) {
	s, ok := lookup(p, key)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingParam, key)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrMalformed, key, s)
	}
	return v, nil
}

func boolParam(p map[string]string, key string) (bool, error) {
	s, ok := lookup(p, key)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrMissingParam, key)
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", ErrMalformed, key, s)
	}
	return v, nil
}

func channelParam(p map[string]string) (logic.Channel, error) {
	s, ok := lookup(p, "channel")
	if !ok {
		return "", fmt.Errorf("%w: channel", ErrMissingParam)
	}
	c, ok := logic.ParseChannel(strings.ToLower(s))
	if !ok {
		return "", fmt.Errorf("%w: channel=%q", ErrMalformed, s)
	}
	if c == logic.ChannelFlame {
		return "", fmt.Errorf("%w: flame channel", ErrReadOnly)
	}
	return c, nil
}
