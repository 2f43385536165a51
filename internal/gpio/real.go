//go:build linux

package gpio

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

// RealSampler reads sensors from actual hardware using the Linux GPIO
// character device. The flame intensity comes from an IIO ADC channel file.
type RealSampler struct {
	chip          *gpiocdev.Chip
	flame         *gpiocdev.Line
	fill          *gpiocdev.Line
	tilt          *gpiocdev.Line
	intensityPath string
}

// NewRealSampler requests the sensor input lines on chipName.
// intensityPath may be empty, in which case intensity reads as 0.
func NewRealSampler(chipName string, pins Pins, intensityPath string) (*RealSampler, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	s := &RealSampler{chip: chip, intensityPath: intensityPath}

	// Sensor modules have open-collector outputs, so pull lines up.
	if s.flame, err = chip.RequestLine(pins.Flame, gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
		s.Close()
		return nil, fmt.Errorf("request flame pin %d: %w", pins.Flame, err)
	}
	if s.fill, err = chip.RequestLine(pins.Fill, gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
		s.Close()
		return nil, fmt.Errorf("request fill pin %d: %w", pins.Fill, err)
	}
	if s.tilt, err = chip.RequestLine(pins.Tilt, gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
		s.Close()
		return nil, fmt.Errorf("request tilt pin %d: %w", pins.Tilt, err)
	}

	return s, nil
}

// ReadFlame returns the flame digital level.
func (s *RealSampler) ReadFlame() (bool, error) {
	v, err := s.flame.Value()
	if err != nil {
		return false, fmt.Errorf("read flame pin: %w", err)
	}
	return v == 1, nil
}

// ReadFill returns the fill sensor level.
func (s *RealSampler) ReadFill() (bool, error) {
	v, err := s.fill.Value()
	if err != nil {
		return false, fmt.Errorf("read fill pin: %w", err)
	}
	return v == 1, nil
}

// ReadTilt returns the tilt switch level.
func (s *RealSampler) ReadTilt() (bool, error) {
	v, err := s.tilt.Value()
	if err != nil {
		return false, fmt.Errorf("read tilt pin: %w", err)
	}
	return v == 1, nil
}

// ReadIntensity returns the raw ADC intensity.
func (s *RealSampler) ReadIntensity() (int, error) {
	if s.intensityPath == "" {
		return 0, nil
	}
	raw, err := os.ReadFile(s.intensityPath)
	if err != nil {
		return 0, fmt.Errorf("read intensity: %w", err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("parse intensity %q: %w", raw, err)
	}
	return v, nil
}

// Close releases GPIO resources.
func (s *RealSampler) Close() error {
	var errs []error
	for name, l := range map[string]*gpiocdev.Line{"flame": s.flame, "fill": s.fill, "tilt": s.tilt} {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", name, err))
		}
	}
	if s.chip != nil {
		if err := s.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealOutputs drives the light and buzzer lines.
type RealOutputs struct {
	chip  *gpiocdev.Chip
	lines *gpiocdev.Lines
}

// NewRealOutputs requests red, green and buzzer as outputs, all initially low.
func NewRealOutputs(chipName string, pins Pins) (*RealOutputs, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	lines, err := chip.RequestLines([]int{pins.Red, pins.Green, pins.Buzzer}, gpiocdev.AsOutput(0, 0, 0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request output pins %d,%d,%d: %w", pins.Red, pins.Green, pins.Buzzer, err)
	}
	return &RealOutputs{chip: chip, lines: lines}, nil
}

// Set drives the three outputs in one request.
func (o *RealOutputs) Set(red, green, buzzer bool) error {
	if err := o.lines.SetValues([]int{btoi(red), btoi(green), btoi(buzzer)}); err != nil {
		return fmt.Errorf("set outputs: %w", err)
	}
	return nil
}

// Close drives every output low and releases the lines.
// Leaving the buzzer high across a restart would sound the alarm.
func (o *RealOutputs) Close() error {
	var errs []error
	if o.lines != nil {
		if err := o.lines.SetValues([]int{0, 0, 0}); err != nil {
			errs = append(errs, fmt.Errorf("reset outputs: %w", err))
		}
		if err := o.lines.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close outputs: %w", err))
		}
	}
	if o.chip != nil {
		if err := o.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
