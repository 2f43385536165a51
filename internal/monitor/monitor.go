// Package monitor runs the single control loop that owns the sensor pipelines,
// the tunables and the actuator state.
package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/binwatch/internal/actuator"
	"github.com/sweeney/binwatch/internal/climate"
	"github.com/sweeney/binwatch/internal/control"
	"github.com/sweeney/binwatch/internal/eventlog"
	"github.com/sweeney/binwatch/internal/gpio"
	"github.com/sweeney/binwatch/internal/logic"
	"github.com/sweeney/binwatch/internal/metrics"
	"github.com/sweeney/binwatch/internal/status"
)

// Reference timing.
const (
	DefaultSampleInterval = 50 * time.Millisecond
	DefaultAuxInterval    = 2 * time.Second
	DefaultLoopInterval   = 10 * time.Millisecond
	DefaultBurstGap       = 200 * time.Microsecond
)

// Config holds loop timing and display settings.
type Config struct {
	SampleInterval time.Duration
	AuxInterval    time.Duration
	BurstGap       time.Duration
	TopMounted     bool
	IntensityAlpha float64 // zero selects logic.DefaultIntensityAlpha
	BeepOn         time.Duration
	BeepOff        time.Duration
	Status         status.Config
}

// Deps are the collaborators the loop drives.
type Deps struct {
	Sampler   gpio.Sampler
	Outputs   gpio.Outputs
	Climate   climate.Reader
	Processor *control.Processor
	Events    *eventlog.Log
	Tracker   *status.Tracker
	Metrics   metrics.Sink

	// Connected reports the telemetry bridge state. May be nil.
	Connected func() bool
	// Network returns host network diagnostics. May be nil.
	Network func() *status.NetworkInfo

	Now   func() time.Time
	Sleep func(time.Duration)
}

// Monitor is the control loop. None of its methods are safe for concurrent
// use; everything runs on the goroutine that calls Run.
type Monitor struct {
	cfg Config
	d   Deps

	start time.Time
	flame *logic.FlameDetector
	fill  *logic.Pipeline
	tilt  *logic.Pipeline
	act   *actuator.Controller

	tick        uint64
	lastSample  time.Time
	lastAux     time.Time
	climate     climate.Status
	fault       bool
	fillValid   bool
	tiltValid   bool
	output      actuator.Output
	outputValid bool
}

// New creates a Monitor. Zero config values fall back to the reference timing.
func New(cfg Config, d Deps) *Monitor {
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = DefaultSampleInterval
	}
	if cfg.AuxInterval <= 0 {
		cfg.AuxInterval = DefaultAuxInterval
	}
	if cfg.IntensityAlpha == 0 {
		cfg.IntensityAlpha = logic.DefaultIntensityAlpha
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Sleep == nil {
		d.Sleep = time.Sleep
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Nop{}
	}
	if d.Climate == nil {
		d.Climate = climate.NopReader{}
	}

	start := d.Now()
	return &Monitor{
		cfg:   cfg,
		d:     d,
		start: start,
		flame: logic.NewFlameDetector(cfg.IntensityAlpha),
		fill:  logic.NewPipeline(logic.ChannelFill, start),
		tilt:  logic.NewPipeline(logic.ChannelTilt, start),
		act:   actuator.New(cfg.BeepOn, cfg.BeepOff),
	}
}

// Run services commands and iterates on every tick until ctx is done.
func (m *Monitor) Run(ctx context.Context, tick <-chan time.Time, requests <-chan control.Request) error {
	log.Info().
		Dur("sample", m.cfg.SampleInterval).
		Dur("aux", m.cfg.AuxInterval).
		Msg("control loop started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Uint64("ticks", m.tick).Msg("control loop stopped")
			return nil
		case req := <-requests:
			m.Handle(req)
		case <-tick:
			m.drain(requests)
			m.Iterate(m.d.Now())
		}
	}
}

func (m *Monitor) drain(requests <-chan control.Request) {
	for {
		select {
		case req := <-requests:
			m.Handle(req)
		default:
			return
		}
	}
}

// Handle applies one queued command and replies to its submitter. Commands
// whose submitter has already given up are dropped unapplied.
func (m *Monitor) Handle(req control.Request) {
	if !req.Claim() {
		log.Debug().Type("command", req.Command).Msg("dropping abandoned command")
		return
	}
	req.Reply(m.d.Processor.Apply(req.Command, m.d.Now()))
}

// Iterate runs one loop iteration: sampling and aux reads when their
// intervals are due, then actuation. A snapshot is published on every
// iteration that sampled.
func (m *Monitor) Iterate(now time.Time) {
	sampled := false
	if m.tick == 0 || now.Sub(m.lastSample) >= m.cfg.SampleInterval {
		m.sample(now)
		sampled = true
	}
	if m.lastAux.IsZero() || now.Sub(m.lastAux) >= m.cfg.AuxInterval {
		m.climate = m.climate.Apply(m.d.Climate.Read(), now)
		m.lastAux = now
	}

	m.actuate(now)

	if sampled {
		m.d.Tracker.Publish(m.snapshot(now))
	}
}

func (m *Monitor) sample(now time.Time) {
	m.tick++
	m.lastSample = now
	tn := m.d.Processor.Tunables()

	var events []logic.Event
	fault := false

	level, err := m.d.Sampler.ReadFlame()
	if err != nil {
		fault = m.reportFault(logic.ChannelFlame, err) || fault
	} else if e := m.flame.Update(level, tn.FlamePolarity(), now); e != nil {
		events = append(events, *e)
	}

	// A failed intensity read keeps the previous average.
	if intensity, err := m.d.Sampler.ReadIntensity(); err != nil {
		fault = m.reportFault(logic.ChannelFlame, err) || fault
	} else {
		m.flame.Smooth(intensity)
	}

	fill := tn.Fill()
	levels, err := m.burst(m.d.Sampler.ReadFill, fill.BurstSize)
	m.fillValid = err == nil
	if err != nil {
		fault = m.reportFault(logic.ChannelFill, err) || fault
	} else {
		events = append(events, m.fill.Step(levels, fill.Params(), now)...)
	}

	tilt := tn.Tilt()
	levels, err = m.burst(m.d.Sampler.ReadTilt, tilt.BurstSize)
	m.tiltValid = err == nil
	if err != nil {
		fault = m.reportFault(logic.ChannelTilt, err) || fault
	} else {
		events = append(events, m.tilt.Step(levels, tilt.Params(), now)...)
	}

	if fault != m.fault {
		if fault {
			log.Warn().Msg("sensor fault")
		} else {
			log.Info().Msg("sensor fault cleared")
		}
		m.fault = fault
	}

	for _, e := range events {
		log.Info().
			Str("channel", string(e.Channel)).
			Str("kind", string(e.Kind)).
			Bool("active", e.Active).
			Msg(e.Message)
		m.d.Events.Append(e.Timestamp, e.Message)
	}
}

// reportFault logs a read error only when the fault is new.
func (m *Monitor) reportFault(c logic.Channel, err error) bool {
	if !m.fault {
		log.Warn().Err(err).Str("channel", string(c)).Msg("sensor read failed")
	}
	return true
}

// burst takes n reads with a fixed gap between them.
func (m *Monitor) burst(read func() (bool, error), n int) ([]bool, error) {
	levels := make([]bool, n)
	for i := 0; i < n; i++ {
		if i > 0 && m.cfg.BurstGap > 0 {
			m.d.Sleep(m.cfg.BurstGap)
		}
		v, err := read()
		if err != nil {
			return nil, err
		}
		levels[i] = v
	}
	return levels, nil
}

func (m *Monitor) actuate(now time.Time) {
	tn := m.d.Processor.Tunables()
	out := m.act.Update(actuator.Input{
		Detected:      m.flame.Detected(),
		Muted:         tn.Muted(),
		SilencedUntil: tn.SilencedUntil(),
	}, now)

	if m.outputValid && out == m.output {
		return
	}
	if err := m.d.Outputs.Set(out.Red, out.Green, out.Buzzer); err != nil {
		log.Warn().Err(err).Msg("set outputs failed")
		return
	}
	m.output = out
	m.outputValid = true
}

func (m *Monitor) snapshot(now time.Time) status.Snapshot {
	tn := m.d.Processor.Tunables()
	fillPct := logic.FillPercent(m.fill.Latched(), m.cfg.TopMounted)

	s := status.Snapshot{
		Tick:  m.tick,
		Ready: true,
		Flame: status.FlameStatus{
			Detected:     m.flame.Detected(),
			Intensity:    m.flame.Intensity(),
			RawIntensity: m.flame.RawIntensity(),
			Threshold:    tn.FlameThreshold(),
			Polarity:     tn.FlamePolarity(),
		},
		Fill:        channelStatus(m.fill.View(), tn.Fill(), m.fillValid),
		FillPercent: fillPct,
		Tilt:        channelStatus(m.tilt.View(), tn.Tilt(), m.tiltValid),
		Actuation: status.Actuation{
			Red:           m.output.Red,
			Green:         m.output.Green,
			Buzzer:        m.output.Buzzer,
			Phase:         m.act.Phase(),
			Muted:         tn.Muted(),
			SilencedUntil: tn.SilencedUntil(),
		},
		Climate:     m.climate,
		SensorFault: m.fault,
		StartTime:   m.start,
		Now:         now,
		Config:      m.cfg.Status,
	}
	s.Config.TopMounted = m.cfg.TopMounted
	if m.d.Connected != nil {
		s.MQTTConnected = m.d.Connected()
	}
	if m.d.Network != nil {
		s.Network = m.d.Network()
	}

	m.emitMetrics(s)
	return s
}

func (m *Monitor) emitMetrics(s status.Snapshot) {
	g := m.d.Metrics
	g.Gauge("fire.detected", metrics.Bool(s.Flame.Detected))
	g.Gauge("fire.intensity", s.Flame.Intensity)
	g.Gauge("fill.percent", float64(s.FillPercent))
	g.Gauge("tilt.active", metrics.Bool(s.Tilt.Latched))
	g.Gauge("buzzer.on", metrics.Bool(s.Actuation.Buzzer))
	g.Gauge("sensor.fault", metrics.Bool(s.SensorFault))
	if s.Climate.OK {
		g.Gauge("climate.temperature_c", s.Climate.TemperatureC)
		g.Gauge("climate.humidity_pct", s.Climate.HumidityPct)
	}
}

func channelStatus(v logic.PipelineView, t control.ChannelTunables, valid bool) status.ChannelStatus {
	return status.ChannelStatus{
		Latched:      v.Latched,
		Stable:       v.Stable,
		Majority:     v.Majority,
		ActiveCount:  v.ActiveCount,
		BurstSize:    t.BurstSize,
		Quorum:       t.Quorum,
		Polarity:     t.Polarity,
		Stability:    t.Stability,
		OnConfirm:    t.OnConfirm,
		OffConfirm:   t.OffConfirm,
		Debounce:     v.Debounce,
		Latch:        v.Latch,
		LastEdge:     v.LastEdge,
		ReadingValid: valid,
	}
}
