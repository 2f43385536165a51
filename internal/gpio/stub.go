//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealSampler is not available on non-Linux platforms.
type RealSampler struct{}

// NewRealSampler returns an error on non-Linux platforms.
func NewRealSampler(chipName string, pins Pins, intensityPath string) (*RealSampler, error) {
	return nil, errUnsupported
}

// ReadFlame is not implemented on non-Linux platforms.
func (s *RealSampler) ReadFlame() (bool, error) { return false, errUnsupported }

// ReadIntensity is not implemented on non-Linux platforms.
func (s *RealSampler) ReadIntensity() (int, error) { return 0, errUnsupported }

// ReadFill is not implemented on non-Linux platforms.
func (s *RealSampler) ReadFill() (bool, error) { return false, errUnsupported }

// ReadTilt is not implemented on non-Linux platforms.
func (s *RealSampler) ReadTilt() (bool, error) { return false, errUnsupported }

// Close is not implemented on non-Linux platforms.
func (s *RealSampler) Close() error { return nil }

// RealOutputs is not available on non-Linux platforms.
type RealOutputs struct{}

// NewRealOutputs returns an error on non-Linux platforms.
func NewRealOutputs(chipName string, pins Pins) (*RealOutputs, error) {
	return nil, errUnsupported
}

// Set is not implemented on non-Linux platforms.
func (o *RealOutputs) Set(red, green, buzzer bool) error { return errUnsupported }

// Close is not implemented on non-Linux platforms.
func (o *RealOutputs) Close() error { return nil }
