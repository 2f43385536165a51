package gpio

import "sync"

// Input names one sampled channel of FakeSampler.
type Input string

const (
	InputFlame     Input = "flame"
	InputIntensity Input = "intensity"
	InputFill      Input = "fill"
	InputTilt      Input = "tilt"
)

// FakeSampler is a test double that returns scripted line levels.
// It is safe for concurrent use so tests can change levels while a loop runs.
type FakeSampler struct {
	mu sync.Mutex

	flame     bool
	intensity int
	tilt      bool

	// fill reads cycle through fillSeq, so a burst can carry noise.
	fillSeq []bool
	fillIdx int

	// Reads counts calls per channel.
	FlameReads     int
	IntensityReads int
	FillReads      int
	TiltReads      int

	// ReadError, if set, will be returned by every read.
	ReadError error

	// inputErr fails a single channel; ReadError takes precedence.
	inputErr map[Input]error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeSampler creates a FakeSampler with every line low.
func NewFakeSampler() *FakeSampler {
	return &FakeSampler{fillSeq: []bool{false}}
}

// SetFlame sets the flame level and the intensity returned by ReadIntensity.
func (f *FakeSampler) SetFlame(level bool, intensity int) {
	f.mu.Lock()
	f.flame = level
	f.intensity = intensity
	f.mu.Unlock()
}

// SetFill makes every fill read return level.
func (f *FakeSampler) SetFill(level bool) {
	f.SetFillSequence([]bool{level})
}

// SetFillSequence makes successive fill reads cycle through seq.
func (f *FakeSampler) SetFillSequence(seq []bool) {
	if len(seq) == 0 {
		seq = []bool{false}
	}
	f.mu.Lock()
	f.fillSeq = append([]bool(nil), seq...)
	f.fillIdx = 0
	f.mu.Unlock()
}

// SetTilt sets the tilt level.
func (f *FakeSampler) SetTilt(level bool) {
	f.mu.Lock()
	f.tilt = level
	f.mu.Unlock()
}

// SetError makes every read fail with err (nil clears it).
func (f *FakeSampler) SetError(err error) {
	f.mu.Lock()
	f.ReadError = err
	f.mu.Unlock()
}

// SetInputError makes reads of one channel fail with err (nil clears it).
func (f *FakeSampler) SetInputError(in Input, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.inputErr, in)
		return
	}
	if f.inputErr == nil {
		f.inputErr = make(map[Input]error)
	}
	f.inputErr[in] = err
}

// errFor returns the error a read of in should fail with. Callers hold mu.
func (f *FakeSampler) errFor(in Input) error {
	if f.ReadError != nil {
		return f.ReadError
	}
	return f.inputErr[in]
}

// ReadFlame returns the scripted flame level.
func (f *FakeSampler) ReadFlame() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FlameReads++
	if err := f.errFor(InputFlame); err != nil {
		return false, err
	}
	return f.flame, nil
}

// ReadIntensity returns the scripted intensity.
func (f *FakeSampler) ReadIntensity() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.IntensityReads++
	if err := f.errFor(InputIntensity); err != nil {
		return 0, err
	}
	return f.intensity, nil
}

// ReadFill returns the next level of the fill sequence.
func (f *FakeSampler) ReadFill() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FillReads++
	if err := f.errFor(InputFill); err != nil {
		return false, err
	}
	v := f.fillSeq[f.fillIdx]
	f.fillIdx = (f.fillIdx + 1) % len(f.fillSeq)
	return v, nil
}

// ReadTilt returns the scripted tilt level.
func (f *FakeSampler) ReadTilt() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TiltReads++
	if err := f.errFor(InputTilt); err != nil {
		return false, err
	}
	return f.tilt, nil
}

// Close marks the sampler as closed.
func (f *FakeSampler) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// OutputState is one recorded write to FakeOutputs.
type OutputState struct {
	Red    bool
	Green  bool
	Buzzer bool
}

// FakeOutputs records every output write.
type FakeOutputs struct {
	mu     sync.Mutex
	Writes []OutputState

	// SetError, if set, will be returned by Set.
	SetError error

	Closed bool
}

// NewFakeOutputs creates a FakeOutputs.
func NewFakeOutputs() *FakeOutputs {
	return &FakeOutputs{}
}

// Set records the write.
func (f *FakeOutputs) Set(red, green, buzzer bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.Writes = append(f.Writes, OutputState{Red: red, Green: green, Buzzer: buzzer})
	return nil
}

// Last returns the most recent write and whether any write happened.
func (f *FakeOutputs) Last() (OutputState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Writes) == 0 {
		return OutputState{}, false
	}
	return f.Writes[len(f.Writes)-1], true
}

// Close marks the outputs as closed.
func (f *FakeOutputs) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
