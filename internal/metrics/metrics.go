// Package metrics emits per-tick gauges to a DogStatsD agent.
package metrics

import (
	"sync"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/rs/zerolog/log"
)

// Sink receives gauge samples. Implementations must not block.
type Sink interface {
	Gauge(name string, value float64, tags ...string)
	Close() error
}

// Statsd sends gauges over UDP to a DogStatsD agent.
type Statsd struct {
	client *statsd.Client
}

// NewStatsd creates a client for the agent at addr.
func NewStatsd(addr, namespace string, tags []string) (*Statsd, error) {
	client, err := statsd.New(addr)
	if err != nil {
		return nil, err
	}
	client.Namespace = namespace
	client.Tags = tags

	log.Info().
		Str("addr", addr).
		Str("namespace", namespace).
		Strs("tags", tags).
		Msg("statsd metrics initialized")

	return &Statsd{client: client}, nil
}

// Gauge emits one gauge sample. Send failures are logged at debug level;
// metrics are best effort.
func (s *Statsd) Gauge(name string, value float64, tags ...string) {
	if err := s.client.Gauge(name, value, tags, 1); err != nil {
		log.Debug().Err(err).Str("metric", name).Msg("failed to emit gauge")
	}
}

// Close flushes and closes the client.
func (s *Statsd) Close() error {
	return s.client.Close()
}

// Nop discards every sample.
type Nop struct{}

// Gauge does nothing.
func (Nop) Gauge(string, float64, ...string) {}

// Close does nothing.
func (Nop) Close() error { return nil }

// Fake records the latest value of every gauge for test assertions.
type Fake struct {
	mu     sync.Mutex
	Values map[string]float64
	Count  int
}

// NewFake creates a Fake sink.
func NewFake() *Fake {
	return &Fake{Values: map[string]float64{}}
}

// Gauge records the sample.
func (f *Fake) Gauge(name string, value float64, _ ...string) {
	f.mu.Lock()
	f.Values[name] = value
	f.Count++
	f.mu.Unlock()
}

// Value returns the last value recorded for name.
func (f *Fake) Value(name string) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.Values[name]
	return v, ok
}

// Close does nothing.
func (f *Fake) Close() error { return nil }

// Bool converts a flag to a gauge value.
func Bool(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
