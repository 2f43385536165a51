// Package climate reads the auxiliary temperature and humidity sensor.
package climate

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Reading is one attempt to read the sensor.
type Reading struct {
	OK           bool
	TemperatureC float64
	HumidityPct  float64
}

// Reader reads the sensor. Failures are reported through Reading.OK, never
// as errors: a flaky sensor is expected and not fatal.
type Reader interface {
	Read() Reading
}

// Status is what the snapshot shows: the last good values plus whether the
// most recent read succeeded.
type Status struct {
	OK           bool
	TemperatureC float64
	HumidityPct  float64
	LastGood     time.Time
}

// Apply folds a reading into the status. A failed read keeps the previous
// values and only clears OK.
func (s Status) Apply(r Reading, now time.Time) Status {
	if !r.OK {
		s.OK = false
		return s
	}
	return Status{OK: true, TemperatureC: r.TemperatureC, HumidityPct: r.HumidityPct, LastGood: now}
}

// IIOReader reads a DHT-class sensor exposed by the Linux IIO subsystem.
// The dht11 kernel driver reports milli-degrees and milli-percent.
type IIOReader struct {
	dir string
}

// NewIIOReader reads from an IIO device directory such as
// /sys/bus/iio/devices/iio:device0.
func NewIIOReader(dir string) *IIOReader {
	return &IIOReader{dir: dir}
}

// Read reads both channels. Any failure yields a not-OK reading.
func (r *IIOReader) Read() Reading {
	temp, err := readMilli(filepath.Join(r.dir, "in_temp_input"))
	if err != nil {
		log.Debug().Err(err).Str("dir", r.dir).Msg("climate read failed")
		return Reading{}
	}
	hum, err := readMilli(filepath.Join(r.dir, "in_humidityrelative_input"))
	if err != nil {
		log.Debug().Err(err).Str("dir", r.dir).Msg("climate read failed")
		return Reading{}
	}
	return Reading{OK: true, TemperatureC: temp, HumidityPct: hum}
}

func readMilli(path string) (float64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return float64(v) / 1000, nil
}

// NopReader is used when no auxiliary sensor is configured. Every read fails.
type NopReader struct{}

// Read returns a not-OK reading.
func (NopReader) Read() Reading { return Reading{} }

// FakeReader returns scripted readings, repeating the last one.
type FakeReader struct {
	Readings []Reading
	index    int
	Reads    int
}

// NewFakeReader creates a FakeReader with the given readings.
func NewFakeReader(readings ...Reading) *FakeReader {
	return &FakeReader{Readings: readings}
}

// Read returns the next scripted reading.
func (f *FakeReader) Read() Reading {
	f.Reads++
	if len(f.Readings) == 0 {
		return Reading{}
	}
	r := f.Readings[f.index]
	if f.index < len(f.Readings)-1 {
		f.index++
	}
	return r
}
