// Package mqtt bridges the monitor to an MQTT broker: telemetry pushes, event
// forwarding, lifecycle messages and inbound commands.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/binwatch/internal/control"
	"github.com/sweeney/binwatch/internal/eventlog"
)

// DefaultPrefix is the root of every topic.
const DefaultPrefix = "binwatch"

// System lifecycle event names.
const (
	EventOnline  = "ONLINE"
	EventOffline = "OFFLINE"
	EventStartup = "STARTUP"
	EventStop    = "SHUTDOWN"
)

// ErrNotConnected is returned when a message cannot be sent or buffered
// because the broker is unreachable.
var ErrNotConnected = errors.New("mqtt not connected")

// Topics names the per-device topics.
type Topics struct {
	Telemetry string
	Events    string
	Command   string
	System    string
}

// TopicsFor builds the topic set for a device.
func TopicsFor(prefix, device string) Topics {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	base := prefix + "/" + device
	return Topics{
		Telemetry: base + "/telemetry",
		Events:    base + "/events",
		Command:   base + "/command",
		System:    base + "/system",
	}
}

// Publisher publishes monitor output to MQTT.
type Publisher interface {
	// PublishTelemetry sends a pre-formatted snapshot. Returns ErrNotConnected
	// while the broker is unreachable; telemetry is never buffered.
	PublishTelemetry(payload []byte) error

	// PublishEvent sends one event log entry. Entries published while
	// disconnected are buffered and replayed on reconnect.
	PublishEvent(entry eventlog.Entry) error

	// PublishSystem sends a lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a lifecycle event (e.g. ONLINE, STARTUP, SHUTDOWN).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string
	Reason     string // e.g. "SIGTERM" (shutdown only)
	RawPayload []byte // if set, FormatSystemPayload returns it directly
	Retained   bool
}

// EventPayload is the JSON body of an event message.
type EventPayload struct {
	Event EventInner `json:"event"`
}

// EventInner contains the event details.
type EventInner struct {
	Device    string `json:"device"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// FormatEventPayload creates the JSON payload for an event log entry.
func FormatEventPayload(device string, entry eventlog.Entry) ([]byte, error) {
	return json.Marshal(EventPayload{Event: EventInner{
		Device:    device,
		Timestamp: entry.Timestamp.UTC().Format(time.RFC3339Nano),
		Message:   entry.Message,
	}})
}

// SystemPayload is the JSON body of a lifecycle message that doesn't carry a
// full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{Event: event.Event, Reason: event.Reason}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}

// CommandMessage is the inbound command payload.
type CommandMessage struct {
	Command string         `json:"command"`
	Params  map[string]any `json:"params"`
}

// ParseCommand decodes an inbound payload into a command. Parameter values of
// any JSON type are stringified before parsing.
func ParseCommand(payload []byte) (control.Command, error) {
	var msg CommandMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", control.ErrMalformed, err)
	}
	if msg.Command == "" {
		return nil, fmt.Errorf("%w: command", control.ErrMissingParam)
	}

	params := make(map[string]string, len(msg.Params))
	for k, v := range msg.Params {
		params[k] = paramString(v)
	}
	return control.Parse(msg.Command, params)
}

func paramString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		// JSON numbers; integers must not pick up an exponent.
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprint(x)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// HandleCommand parses payload and submits the command, waiting at most
// timeout for the control loop to apply it.
func HandleCommand(ctx context.Context, sub control.Submitter, payload []byte, timeout time.Duration) error {
	cmd, err := ParseCommand(payload)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return sub.Submit(ctx, cmd)
}

