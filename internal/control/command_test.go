package control

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/binwatch/internal/logic"
)

func TestParseValidCommands(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]string
		want   Command
	}{
		{"set_flame_threshold", map[string]string{"value": "1200"}, SetFlameThreshold{Value: 1200}},
		{"set_flame_threshold", map[string]string{"value": "-5"}, SetFlameThreshold{Value: -5}},
		{"set_muted", map[string]string{"muted": "true"}, SetMuted{Muted: true}},
		{"set_muted", map[string]string{"muted": "0"}, SetMuted{Muted: false}},
		{"mute", nil, SetMuted{Muted: true}},
		{"unmute", nil, SetMuted{Muted: false}},
		{"silence", nil, Silence{Duration: DefaultSilence}},
		{"silence", map[string]string{"duration_ms": "60000"}, Silence{Duration: time.Minute}},
		{"unsilence", nil, Unsilence{}},
		{"flip_polarity", map[string]string{"channel": "fill"}, FlipPolarity{Channel: logic.ChannelFill}},
		{"flip_polarity", map[string]string{"channel": "TILT"}, FlipPolarity{Channel: logic.ChannelTilt}},
		{"set_quorum", map[string]string{"value": " 12 "}, SetQuorum{Value: 12}},
		{"set_burst_size", map[string]string{"value": "20"}, SetBurstSize{Value: 20}},
		{"set_stability_window", map[string]string{"channel": "tilt", "ms": "250"}, SetStabilityWindow{Channel: logic.ChannelTilt, Window: 250 * time.Millisecond}},
		{"clear_events", nil, ClearEvents{}},
	}
	for _, tt := range tests {
		got, err := Parse(tt.name, tt.params)
		require.NoErrorf(t, err, "%s %v", tt.name, tt.params)
		assert.Equal(t, tt.want, got)
		assert.NotEmpty(t, got.Name())
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]string
		want   error
	}{
		{"reboot", nil, ErrUnknownCommand},
		{"", nil, ErrUnknownCommand},
		{"set_flame_threshold", nil, ErrMissingParam},
		{"set_flame_threshold", map[string]string{"value": ""}, ErrMissingParam},
		{"set_flame_threshold", map[string]string{"value": "hot"}, ErrMalformed},
		{"set_quorum", map[string]string{"value": "1.5"}, ErrMalformed},
		{"set_muted", map[string]string{}, ErrMissingParam},
		{"set_muted", map[string]string{"muted": "maybe"}, ErrMalformed},
		{"silence", map[string]string{"duration_ms": "soon"}, ErrMalformed},
		{"silence", map[string]string{"duration_ms": "-1"}, ErrOutOfRange},
		{"flip_polarity", nil, ErrMissingParam},
		{"flip_polarity", map[string]string{"channel": "lid"}, ErrMalformed},
		{"flip_polarity", map[string]string{"channel": "flame"}, ErrReadOnly},
		{"set_stability_window", map[string]string{"channel": "fill"}, ErrMissingParam},
		{"set_stability_window", map[string]string{"channel": "flame", "ms": "10"}, ErrReadOnly},
	}
	for _, tt := range tests {
		_, err := Parse(tt.name, tt.params)
		assert.ErrorIsf(t, err, tt.want, "%s %v", tt.name, tt.params)
	}
}

func TestNamesSortedAndKnown(t *testing.T) {
	names := Names()
	require.NotEmpty(t, names)
	assert.IsIncreasing(t, names)
	for _, n := range names {
		assert.True(t, Known(n))
	}
	assert.False(t, Known("self_destruct"))
}
