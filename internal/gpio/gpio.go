// Package gpio provides sensor input sampling and actuator output with
// hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Sampler reads raw sensor line levels. Levels are returned as seen on the
// wire; polarity is applied by the conditioning pipeline.
type Sampler interface {
	// ReadFlame returns one raw read of the flame digital line.
	ReadFlame() (bool, error)

	// ReadIntensity returns the flame sensor's analog intensity. It is read
	// separately so an ADC fault never hides the digital line.
	ReadIntensity() (int, error)

	// ReadFill returns one raw read of the fill level sensor.
	ReadFill() (bool, error)

	// ReadTilt returns one raw read of the tilt switch.
	ReadTilt() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Outputs drives the traffic lights and the buzzer.
type Outputs interface {
	Set(red, green, buzzer bool) error
	Close() error
}

// Pins holds the BCM line offsets used by the device.
type Pins struct {
	Flame  int `json:"flame"`
	Fill   int `json:"fill"`
	Tilt   int `json:"tilt"`
	Red    int `json:"red"`
	Green  int `json:"green"`
	Buzzer int `json:"buzzer"`
}

// Default pin definitions (BCM numbering)
const (
	DefaultPinFlame  = 17
	DefaultPinFill   = 27
	DefaultPinTilt   = 22
	DefaultPinRed    = 5
	DefaultPinGreen  = 6
	DefaultPinBuzzer = 13
)

// DefaultPins returns the reference wiring.
func DefaultPins() Pins {
	return Pins{
		Flame:  DefaultPinFlame,
		Fill:   DefaultPinFill,
		Tilt:   DefaultPinTilt,
		Red:    DefaultPinRed,
		Green:  DefaultPinGreen,
		Buzzer: DefaultPinBuzzer,
	}
}
