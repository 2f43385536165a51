package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/binwatch/internal/eventlog"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Tick          uint64       `json:"tick"`
	Ready         bool         `json:"ready"`
	Fire          FlameJSON    `json:"fire"`
	Fill          FillJSON     `json:"fill"`
	Tilt          ChannelJSON  `json:"tilt"`
	Outputs       OutputsJSON  `json:"outputs"`
	Climate       ClimateJSON  `json:"climate"`
	SensorFault   bool         `json:"sensor_fault"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// FlameJSON is the flame channel.
type FlameJSON struct {
	Detected     bool    `json:"detected"`
	Intensity    float64 `json:"intensity"`
	RawIntensity int     `json:"raw_intensity"`
	Threshold    int     `json:"threshold"`
	Polarity     string  `json:"polarity"`
}

// ChannelJSON is a conditioned channel.
type ChannelJSON struct {
	Active       bool   `json:"active"`
	Stable       bool   `json:"stable"`
	Majority     bool   `json:"majority"`
	ActiveCount  int    `json:"active_count"`
	BurstSize    int    `json:"burst_size"`
	Quorum       int    `json:"quorum"`
	Polarity     string `json:"polarity"`
	StabilityMs  int64  `json:"stability_ms"`
	OnConfirmMs  int64  `json:"on_confirm_ms"`
	OffConfirmMs int64  `json:"off_confirm_ms"`
	Debounce     string `json:"debounce"`
	Latch        string `json:"latch"`
}

// FillJSON adds the fill percentage to a channel.
type FillJSON struct {
	ChannelJSON
	Percent    int  `json:"percent"`
	TopMounted bool `json:"top_mounted"`
}

// OutputsJSON is the actuation state.
type OutputsJSON struct {
	Red               bool   `json:"red"`
	Green             bool   `json:"green"`
	Buzzer            bool   `json:"buzzer"`
	Phase             string `json:"phase"`
	Muted             bool   `json:"muted"`
	Silenced          bool   `json:"silenced"`
	SilencedUntil     string `json:"silenced_until,omitempty"`
	SilenceRemainingS int64  `json:"silence_remaining_s"`
}

// ClimateJSON is the auxiliary sensor state.
type ClimateJSON struct {
	OK           bool    `json:"ok"`
	TemperatureC float64 `json:"temperature_c"`
	HumidityPct  float64 `json:"humidity_pct"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
	SignalDBm  *int   `json:"signal_dbm,omitempty"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	DeviceID string `json:"device_id"`
	SampleMs int64  `json:"sample_ms"`
	AuxMs    int64  `json:"aux_ms"`
	LoopMs   int64  `json:"loop_ms"`
	Broker   string `json:"broker"`
	HTTPAddr string `json:"http_addr"`
}

// EventsJSON is the event log query response.
type EventsJSON struct {
	Count  int         `json:"count"`
	Events []EventJSON `json:"events"`
}

// EventJSON is one event log entry.
type EventJSON struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

func channelJSON(c ChannelStatus) ChannelJSON {
	return ChannelJSON{
		Active:       c.Latched,
		Stable:       c.Stable,
		Majority:     c.Majority,
		ActiveCount:  c.ActiveCount,
		BurstSize:    c.BurstSize,
		Quorum:       c.Quorum,
		Polarity:     string(c.Polarity),
		StabilityMs:  c.Stability.Milliseconds(),
		OnConfirmMs:  c.OnConfirm.Milliseconds(),
		OffConfirmMs: c.OffConfirm.Milliseconds(),
		Debounce:     string(c.Debounce),
		Latch:        string(c.Latch),
	}
}

func buildInner(snap Snapshot) StatusInner {
	out := OutputsJSON{
		Red:      snap.Actuation.Red,
		Green:    snap.Actuation.Green,
		Buzzer:   snap.Actuation.Buzzer,
		Phase:    string(snap.Actuation.Phase),
		Muted:    snap.Actuation.Muted,
		Silenced: snap.Silenced(),
	}
	if out.Silenced {
		out.SilencedUntil = snap.Actuation.SilencedUntil.UTC().Format(time.RFC3339)
		out.SilenceRemainingS = int64(snap.Actuation.SilencedUntil.Sub(snap.Now).Truncate(time.Second).Seconds())
	}

	inner := StatusInner{
		Tick:  snap.Tick,
		Ready: snap.Ready,
		Fire: FlameJSON{
			Detected:     snap.Flame.Detected,
			Intensity:    snap.Flame.Intensity,
			RawIntensity: snap.Flame.RawIntensity,
			Threshold:    snap.Flame.Threshold,
			Polarity:     string(snap.Flame.Polarity),
		},
		Fill: FillJSON{
			ChannelJSON: channelJSON(snap.Fill),
			Percent:     snap.FillPercent,
			TopMounted:  snap.Config.TopMounted,
		},
		Tilt:    channelJSON(snap.Tilt),
		Outputs: out,
		Climate: ClimateJSON{
			OK:           snap.Climate.OK,
			TemperatureC: snap.Climate.TemperatureC,
			HumidityPct:  snap.Climate.HumidityPct,
		},
		SensorFault:   snap.SensorFault,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			DeviceID: snap.Config.DeviceID,
			SampleMs: snap.Config.SampleMs,
			AuxMs:    snap.Config.AuxMs,
			LoopMs:   snap.Config.LoopMs,
			Broker:   snap.Config.Broker,
			HTTPAddr: snap.Config.HTTPAddr,
		},
	}

	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
			SignalDBm:  snap.Network.SignalDBm,
		}
	}
	return inner
}

// FormatJSON returns the indented JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatTelemetry returns the compact JSON status for a telemetry push.
func FormatTelemetry(snap Snapshot) []byte {
	data, _ := json.Marshal(StatusJSON{Status: buildInner(snap)})
	return data
}

// FormatStatusEvent returns the compact JSON status tagged with a lifecycle
// event and an optional reason.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// FormatEvents returns the event log as JSON, oldest first.
func FormatEvents(entries []eventlog.Entry) []byte {
	ej := EventsJSON{Count: len(entries), Events: make([]EventJSON, 0, len(entries))}
	for _, e := range entries {
		ej.Events = append(ej.Events, EventJSON{
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
			Message:   e.Message,
		})
	}
	data, _ := json.MarshalIndent(ej, "", "  ")
	return data
}
