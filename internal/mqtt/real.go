package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/binwatch/internal/control"
	"github.com/sweeney/binwatch/internal/eventlog"
)

// Options configures a RealPublisher.
type Options struct {
	Broker   string
	DeviceID string
	// ClientID defaults to "binwatch-<uuid>" when empty.
	ClientID string
	Prefix   string

	// Commands receives inbound commands. Nil disables the subscription.
	Commands       control.Submitter
	CommandTimeout time.Duration

	BufferSize int
}

// RealPublisher publishes to an actual MQTT broker. Connecting is
// asynchronous; the client retries in the background and nothing blocks
// waiting for the broker.
type RealPublisher struct {
	client paho.Client
	opts   Options
	topics Topics

	mu        sync.Mutex
	connected bool
	buffer    *eventBuffer

	// send publishes without waiting for delivery.
	send func(topic string, qos byte, retained bool, payload []byte)
}

// NewRealPublisher creates a publisher and starts connecting to the broker.
func NewRealPublisher(o Options) *RealPublisher {
	if o.ClientID == "" {
		o.ClientID = "binwatch-" + uuid.NewString()
	}
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
	if o.CommandTimeout <= 0 {
		o.CommandTimeout = 2 * time.Second
	}

	p := &RealPublisher{
		opts:   o,
		topics: TopicsFor(o.Prefix, o.DeviceID),
		buffer: newEventBuffer(o.BufferSize),
	}
	p.send = p.publishAsync

	will, _ := FormatSystemPayload(SystemEvent{Event: EventOffline})
	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(p.topics.System, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			log.Warn().Err(err).Str("broker", o.Broker).Msg("mqtt connect failed")
		}
	}()

	log.Info().
		Str("broker", o.Broker).
		Str("client_id", o.ClientID).
		Str("command_topic", p.topics.Command).
		Msg("mqtt connecting")
	return p
}

func (p *RealPublisher) onConnect(c paho.Client) {
	online, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: EventOnline})
	c.Publish(p.topics.System, 1, true, online)

	if p.opts.Commands != nil {
		c.Subscribe(p.topics.Command, 1, p.onCommand)
	}

	p.resume()
}

// resume replays buffered events and only then marks the publisher
// connected. Holding mu throughout keeps a concurrent PublishEvent from
// overtaking the replay.
func (p *RealPublisher) resume() {
	p.mu.Lock()
	pending, dropped := p.buffer.take()
	for _, e := range pending {
		payload, err := FormatEventPayload(p.opts.DeviceID, e)
		if err != nil {
			continue
		}
		p.send(p.topics.Events, 1, false, payload)
	}
	p.connected = true
	p.mu.Unlock()

	log.Info().Int("replayed", len(pending)).Int("dropped", dropped).Msg("mqtt connected")
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	log.Warn().Err(err).Msg("mqtt connection lost")
}

func (p *RealPublisher) onCommand(_ paho.Client, msg paho.Message) {
	p.dispatchCommand(msg.Topic(), msg.Payload())
}

// dispatchCommand hands the command to the loop on its own goroutine so the
// client's message router is never held for CommandTimeout. The returned
// channel closes once the command has been handled.
func (p *RealPublisher) dispatchCommand(topic string, payload []byte) <-chan struct{} {
	payload = append([]byte(nil), payload...)
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := HandleCommand(context.Background(), p.opts.Commands, payload, p.opts.CommandTimeout)
		if err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("mqtt command rejected")
			return
		}
		log.Debug().Str("topic", topic).Msg("mqtt command applied")
	}()
	return done
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// PublishTelemetry sends a snapshot at QoS 0, not retained.
func (p *RealPublisher) PublishTelemetry(payload []byte) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}
	p.publishAsync(p.topics.Telemetry, 0, false, payload)
	return nil
}

// PublishEvent sends an event at QoS 1, buffering while disconnected.
func (p *RealPublisher) PublishEvent(entry eventlog.Entry) error {
	p.mu.Lock()
	if !p.connected {
		p.buffer.add(entry)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	payload, err := FormatEventPayload(p.opts.DeviceID, entry)
	if err != nil {
		return fmt.Errorf("format event payload: %w", err)
	}

	p.send(p.topics.Events, 1, false, payload)
	return nil
}

// PublishSystem sends a lifecycle event and waits for delivery, since it is
// used during startup and shutdown.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	if !p.IsConnected() {
		return ErrNotConnected
	}

	token := p.client.Publish(p.topics.System, 1, event.Retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish system timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

func (p *RealPublisher) publishAsync(topic string, qos byte, retained bool, payload []byte) {
	token := p.client.Publish(topic, qos, retained, payload)
	go func() {
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			log.Debug().Err(token.Error()).Str("topic", topic).Msg("mqtt publish failed")
		}
	}()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	return nil
}
