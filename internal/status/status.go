// Package status provides a thread-safe snapshot holder for the binwatch daemon.
// The control loop publishes a complete snapshot once per sampling tick; HTTP
// handlers and the telemetry bridge read copies.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/binwatch/internal/actuator"
	"github.com/sweeney/binwatch/internal/climate"
	"github.com/sweeney/binwatch/internal/logic"
)

// NetworkInfo contains network state supplied by the host.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
	SignalDBm  *int // nil when unknown
}

// Config contains daemon configuration for display.
type Config struct {
	DeviceID   string
	SampleMs   int64
	AuxMs      int64
	LoopMs     int64
	TopMounted bool
	Broker     string
	HTTPAddr   string
}

// FlameStatus is the flame channel as seen on one tick.
type FlameStatus struct {
	Detected     bool
	Intensity    float64
	RawIntensity int
	Threshold    int
	Polarity     logic.Polarity
}

// ChannelStatus is a conditioned channel and its tunables as seen on one tick.
type ChannelStatus struct {
	Latched      bool
	Stable       bool
	Majority     bool
	ActiveCount  int
	BurstSize    int
	Quorum       int
	Polarity     logic.Polarity
	Stability    time.Duration
	OnConfirm    time.Duration
	OffConfirm   time.Duration
	Debounce     logic.DebouncePhase
	Latch        logic.LatchPhase
	LastEdge     time.Time
	ReadingValid bool
}

// Actuation is the output state as seen on one tick.
type Actuation struct {
	Red           bool
	Green         bool
	Buzzer        bool
	Phase         actuator.Phase
	Muted         bool
	SilencedUntil time.Time
}

// Silenced reports whether the silence window was open at the snapshot time.
func (s Snapshot) Silenced() bool {
	return actuator.Silenced(s.Actuation.SilencedUntil, s.Now)
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Tick          uint64
	Ready         bool
	Flame         FlameStatus
	Fill          ChannelStatus
	FillPercent   int
	Tilt          ChannelStatus
	Actuation     Actuation
	Climate       climate.Status
	SensorFault   bool
	MQTTConnected bool
	Network       *NetworkInfo
	StartTime     time.Time
	Now           time.Time
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds the latest published snapshot behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Now:       startTime,
			Config:    cfg,
		},
	}
}

// Publish replaces the whole snapshot. Readers see either the previous
// snapshot or this one, never a mix.
func (t *Tracker) Publish(s Snapshot) {
	s.Network = cloneNetwork(s.Network)
	t.mu.Lock()
	t.snap = s
	t.mu.Unlock()
}

// Snapshot returns a copy of the last published snapshot.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Network = cloneNetwork(s.Network)
	return s
}

func cloneNetwork(n *NetworkInfo) *NetworkInfo {
	if n == nil {
		return nil
	}
	c := *n
	if n.SignalDBm != nil {
		v := *n.SignalDBm
		c.SignalDBm = &v
	}
	return &c
}
