// Package config loads daemon settings from flags and an optional JSON file.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/binwatch/internal/control"
	"github.com/sweeney/binwatch/internal/gpio"
	"github.com/sweeney/binwatch/internal/logic"
)

// ChannelConfig holds the startup tunables of a conditioned channel.
// Quorum is ignored for the tilt channel, whose quorum is fixed.
type ChannelConfig struct {
	Polarity     string `json:"polarity"`
	BurstSize    int    `json:"burst_size"`
	Quorum       int    `json:"quorum"`
	StabilityMs  int    `json:"stability_ms"`
	OnConfirmMs  int    `json:"on_confirm_ms"`
	OffConfirmMs int    `json:"off_confirm_ms"`
}

// Config is the full daemon configuration.
type Config struct {
	ConfigFile string        `json:"-"`
	LogLevel   zerolog.Level `json:"-"`
	LogFile    string        `json:"log_file"`
	PrintState bool          `json:"-"`

	DeviceID    string `json:"device_id"`
	Broker      string `json:"broker"`
	TopicPrefix string `json:"topic_prefix"`
	HTTPAddr    string `json:"http_addr"`
	StatsdAddr  string `json:"statsd_addr"`

	Chip          string    `json:"gpio_chip"`
	Pins          gpio.Pins `json:"pins"`
	IntensityPath string    `json:"intensity_path"`
	ClimatePath   string    `json:"climate_path"`
	TopMounted    bool      `json:"top_mounted"`

	SampleMs    int `json:"sample_ms"`
	AuxMs       int `json:"aux_ms"`
	LoopMs      int `json:"loop_ms"`
	TelemetryMs int `json:"telemetry_ms"`
	BurstGapUs  int `json:"burst_gap_us"`

	FlameThreshold int           `json:"flame_threshold"`
	Fill           ChannelConfig `json:"fill"`
	Tilt           ChannelConfig `json:"tilt"`
}

// Default returns the reference configuration.
func Default() Config {
	d := control.DefaultDefaults()
	return Config{
		LogLevel:       zerolog.InfoLevel,
		DeviceID:       hostname(),
		Broker:         "tcp://localhost:1883",
		HTTPAddr:       ":80",
		Chip:           "gpiochip0",
		Pins:           gpio.DefaultPins(),
		IntensityPath:  "/sys/bus/iio/devices/iio:device0/in_voltage0_raw",
		ClimatePath:    "/sys/bus/iio/devices/iio:device1",
		TopMounted:     true,
		SampleMs:       50,
		AuxMs:          2000,
		LoopMs:         10,
		TelemetryMs:    500,
		BurstGapUs:     200,
		FlameThreshold: d.FlameThreshold,
		Fill:           channelConfig(d.Fill),
		Tilt:           channelConfig(d.Tilt),
	}
}

func channelConfig(c control.ChannelTunables) ChannelConfig {
	return ChannelConfig{
		Polarity:     string(c.Polarity),
		BurstSize:    c.BurstSize,
		Quorum:       c.Quorum,
		StabilityMs:  int(c.Stability.Milliseconds()),
		OnConfirmMs:  int(c.OnConfirm.Milliseconds()),
		OffConfirmMs: int(c.OffConfirm.Milliseconds()),
	}
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "binwatch"
	}
	return h
}

// Load parses args, then the JSON file named by -config if any. Flags given
// explicitly on the command line win over the file.
func Load(args []string) (Config, error) {
	cfg := Default()
	var logLevel string

	fs := flag.NewFlagSet("binwatch", flag.ContinueOnError)
	fs.StringVar(&cfg.ConfigFile, "config", "", "Path to JSON config file")
	fs.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Log file path (empty logs to stderr)")
	fs.BoolVar(&cfg.PrintState, "print-state", false, "Print current sensor levels and exit")
	fs.StringVar(&cfg.DeviceID, "device", cfg.DeviceID, "Device ID used in MQTT topics")
	fs.StringVar(&cfg.Broker, "broker", cfg.Broker, "MQTT broker address (empty to disable)")
	fs.StringVar(&cfg.TopicPrefix, "topic-prefix", cfg.TopicPrefix, "MQTT topic prefix")
	fs.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "HTTP status address (empty to disable)")
	fs.StringVar(&cfg.StatsdAddr, "statsd", cfg.StatsdAddr, "DogStatsD agent address (empty to disable)")
	fs.StringVar(&cfg.Chip, "chip", cfg.Chip, "GPIO chip name")
	fs.IntVar(&cfg.Pins.Flame, "pin-flame", cfg.Pins.Flame, "BCM pin for the flame sensor")
	fs.IntVar(&cfg.Pins.Fill, "pin-fill", cfg.Pins.Fill, "BCM pin for the fill level sensor")
	fs.IntVar(&cfg.Pins.Tilt, "pin-tilt", cfg.Pins.Tilt, "BCM pin for the tilt switch")
	fs.IntVar(&cfg.Pins.Red, "pin-red", cfg.Pins.Red, "BCM pin for the red light")
	fs.IntVar(&cfg.Pins.Green, "pin-green", cfg.Pins.Green, "BCM pin for the green light")
	fs.IntVar(&cfg.Pins.Buzzer, "pin-buzzer", cfg.Pins.Buzzer, "BCM pin for the buzzer")
	fs.StringVar(&cfg.IntensityPath, "intensity-path", cfg.IntensityPath, "IIO raw file for flame intensity")
	fs.StringVar(&cfg.ClimatePath, "climate-path", cfg.ClimatePath, "IIO device directory for the climate sensor (empty to disable)")
	fs.BoolVar(&cfg.TopMounted, "top-mounted", cfg.TopMounted, "Fill sensor is mounted at the top of the bin")
	fs.IntVar(&cfg.SampleMs, "sample-ms", cfg.SampleMs, "Sensor sampling interval in ms")
	fs.IntVar(&cfg.AuxMs, "aux-ms", cfg.AuxMs, "Climate read interval in ms")
	fs.IntVar(&cfg.LoopMs, "loop-ms", cfg.LoopMs, "Control loop period in ms")
	fs.IntVar(&cfg.TelemetryMs, "telemetry-ms", cfg.TelemetryMs, "MQTT telemetry push interval in ms")
	fs.IntVar(&cfg.FlameThreshold, "flame-threshold", cfg.FlameThreshold, "Flame intensity display threshold")
	fs.IntVar(&cfg.Fill.Quorum, "fill-quorum", cfg.Fill.Quorum, "Fill level majority quorum")
	fs.IntVar(&cfg.Fill.BurstSize, "fill-burst", cfg.Fill.BurstSize, "Fill level reads per sample")
	fs.StringVar(&cfg.Fill.Polarity, "fill-polarity", cfg.Fill.Polarity, "Fill level polarity (active-high, active-low)")
	fs.StringVar(&cfg.Tilt.Polarity, "tilt-polarity", cfg.Tilt.Polarity, "Tilt polarity (active-high, active-low)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.ConfigFile != "" {
		set := map[string]string{}
		fs.Visit(func(f *flag.Flag) { set[f.Name] = f.Value.String() })

		if err := loadFile(&cfg, cfg.ConfigFile); err != nil {
			return Config{}, err
		}
		for name, v := range set {
			fs.Set(name, v)
		}
	}

	cfg.LogLevel = parseLogLevel(logLevel)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer file.Close()

	dec := json.NewDecoder(file)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (cfg *Config) validate() error {
	var errs []error

	if strings.TrimSpace(cfg.DeviceID) == "" {
		errs = append(errs, errors.New("device id is empty"))
	}

	pins := []struct {
		name string
		pin  int
	}{
		{"pins.flame", cfg.Pins.Flame},
		{"pins.fill", cfg.Pins.Fill},
		{"pins.tilt", cfg.Pins.Tilt},
		{"pins.red", cfg.Pins.Red},
		{"pins.green", cfg.Pins.Green},
		{"pins.buzzer", cfg.Pins.Buzzer},
	}
	used := map[int]string{}
	for _, p := range pins {
		if p.pin < 0 {
			errs = append(errs, fmt.Errorf("%s: negative pin %d", p.name, p.pin))
			continue
		}
		if other, ok := used[p.pin]; ok {
			errs = append(errs, fmt.Errorf("%s and %s both use pin %d", p.name, other, p.pin))
			continue
		}
		used[p.pin] = p.name
	}

	intervals := []struct {
		name string
		ms   int
	}{
		{"sample_ms", cfg.SampleMs},
		{"aux_ms", cfg.AuxMs},
		{"loop_ms", cfg.LoopMs},
		{"telemetry_ms", cfg.TelemetryMs},
	}
	for _, iv := range intervals {
		if iv.ms <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", iv.name, iv.ms))
		}
	}
	if cfg.LoopMs > 0 && cfg.SampleMs > 0 && cfg.LoopMs > cfg.SampleMs {
		errs = append(errs, fmt.Errorf("loop_ms (%d) exceeds sample_ms (%d)", cfg.LoopMs, cfg.SampleMs))
	}
	if cfg.BurstGapUs < 0 {
		errs = append(errs, fmt.Errorf("burst_gap_us must not be negative, got %d", cfg.BurstGapUs))
	}

	if cfg.FlameThreshold < 0 || cfg.FlameThreshold > control.MaxADC {
		errs = append(errs, fmt.Errorf("flame_threshold %d outside [0, %d]", cfg.FlameThreshold, control.MaxADC))
	}

	errs = append(errs, validateChannel("fill", cfg.Fill, true)...)
	errs = append(errs, validateChannel("tilt", cfg.Tilt, false)...)

	return errors.Join(errs...)
}

func validateChannel(name string, c ChannelConfig, checkQuorum bool) []error {
	var errs []error
	if _, ok := logic.ParsePolarity(c.Polarity); !ok {
		errs = append(errs, fmt.Errorf("%s.polarity: unknown polarity %q", name, c.Polarity))
	}
	if c.BurstSize < 1 || c.BurstSize > logic.MaxBurstSize {
		errs = append(errs, fmt.Errorf("%s.burst_size %d outside [1, %d]", name, c.BurstSize, logic.MaxBurstSize))
	} else if checkQuorum && (c.Quorum < 1 || c.Quorum > c.BurstSize) {
		errs = append(errs, fmt.Errorf("%s.quorum %d outside [1, %d]", name, c.Quorum, c.BurstSize))
	}
	windows := []struct {
		field string
		ms    int
	}{
		{"stability_ms", c.StabilityMs},
		{"on_confirm_ms", c.OnConfirmMs},
		{"off_confirm_ms", c.OffConfirmMs},
	}
	for _, w := range windows {
		if w.ms < 0 {
			errs = append(errs, fmt.Errorf("%s.%s must not be negative, got %d", name, w.field, w.ms))
		}
	}
	if time.Duration(c.StabilityMs)*time.Millisecond > control.MaxStabilityWindow {
		errs = append(errs, fmt.Errorf("%s.stability_ms %d exceeds %v", name, c.StabilityMs, control.MaxStabilityWindow))
	}
	return errs
}

// Tunables converts the channel settings into processor defaults.
func (cfg Config) Tunables() control.Defaults {
	d := control.DefaultDefaults()
	d.FlameThreshold = cfg.FlameThreshold
	d.Fill = channelTunables(cfg.Fill, cfg.Fill.Quorum)
	d.Tilt = channelTunables(cfg.Tilt, d.Tilt.Quorum)
	return d
}

func channelTunables(c ChannelConfig, quorum int) control.ChannelTunables {
	p, _ := logic.ParsePolarity(c.Polarity)
	return control.ChannelTunables{
		Polarity:   p,
		BurstSize:  c.BurstSize,
		Quorum:     quorum,
		Stability:  time.Duration(c.StabilityMs) * time.Millisecond,
		OnConfirm:  time.Duration(c.OnConfirmMs) * time.Millisecond,
		OffConfirm: time.Duration(c.OffConfirmMs) * time.Millisecond,
	}
}

// Sample returns the sampling interval.
func (cfg Config) Sample() time.Duration { return time.Duration(cfg.SampleMs) * time.Millisecond }

// Aux returns the climate read interval.
func (cfg Config) Aux() time.Duration { return time.Duration(cfg.AuxMs) * time.Millisecond }

// Loop returns the control loop period.
func (cfg Config) Loop() time.Duration { return time.Duration(cfg.LoopMs) * time.Millisecond }

// Telemetry returns the MQTT push interval.
func (cfg Config) Telemetry() time.Duration { return time.Duration(cfg.TelemetryMs) * time.Millisecond }

// BurstGap returns the delay between reads within a burst.
func (cfg Config) BurstGap() time.Duration { return time.Duration(cfg.BurstGapUs) * time.Microsecond }
