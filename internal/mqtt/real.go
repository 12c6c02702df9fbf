package mqtt

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/sweeney/button-sensor/internal/gesture"
)

var (
	// ErrNotConnected is returned when publishing while offline with buffering disabled.
	ErrNotConnected = errors.New("mqtt: not connected")
	// ErrPublishTimeout is returned when the broker does not acknowledge in time.
	ErrPublishTimeout = errors.New("mqtt: publish timeout")
)

const publishTimeout = 5 * time.Second

// Options configures a RealPublisher.
type Options struct {
	Broker      string
	ClientID    string // generated when empty
	TopicPrefix string // DefaultTopicPrefix when empty
	Encoding    Encoding
	// BufferSize is the number of messages kept while disconnected. 0 disables buffering.
	BufferSize int
}

// NewClientID returns a client ID that is unique per process, so two sensors
// on one broker never kick each other off.
func NewClientID() string {
	return "button-sensor-" + uuid.NewString()
}

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client
	enc    Encoding
	events string
	system string

	mu  sync.Mutex
	buf *ringBuffer
}

// NewRealPublisher creates a publisher for the given broker. If the broker is
// unreachable it keeps retrying in the background and buffers messages.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	o = o.withDefaults()

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE", Reason: "LWT"}, o.Encoding)
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	p := newPublisher(nil, o)

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(p.system, string(will), 1, true).
		SetOnConnectHandler(func(paho.Client) {
			log.Printf("mqtt: connected to %s", o.Broker)
			go p.replay()
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: broker %s not reachable yet, retrying in background", o.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

func (o Options) withDefaults() Options {
	if o.ClientID == "" {
		o.ClientID = NewClientID()
	}
	if o.TopicPrefix == "" {
		o.TopicPrefix = DefaultTopicPrefix
	}
	if o.Encoding == "" {
		o.Encoding = EncodingJSON
	}
	return o
}

func newPublisher(client paho.Client, o Options) *RealPublisher {
	p := &RealPublisher{
		client: client,
		enc:    o.Encoding,
		events: EventsTopic(o.TopicPrefix),
		system: SystemTopic(o.TopicPrefix),
	}
	if o.BufferSize > 0 {
		p.buf = newRingBuffer(o.BufferSize)
	}
	return p
}

// Publish sends a gesture event to the MQTT broker.
func (p *RealPublisher) Publish(event gesture.Event) error {
	payload, err := FormatPayload(event, p.enc)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 1: a missed click is a missed user action
	if err := p.publish(bufferedMsg{topic: p.events, payload: payload, qos: 1}); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event, p.enc)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	if err := p.publish(bufferedMsg{topic: p.system, payload: payload, qos: 1, retained: event.Retained}); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// publish sends msg, or buffers it while the client is offline. The
// connection check and the push happen under p.mu, the same lock replay
// drains under, so a message is never left behind by a reconnect. Any
// backlog goes out before msg.
func (p *RealPublisher) publish(msg bufferedMsg) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.client.IsConnectionOpen() {
		if p.buf == nil {
			return ErrNotConnected
		}
		p.buf.push(msg)
		return nil
	}
	p.flushLocked()
	return p.send(msg)
}

// send publishes msg and waits for the broker. Caller holds p.mu.
func (p *RealPublisher) send(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return ErrPublishTimeout
	}
	return token.Error()
}

// replay sends messages buffered while offline. Runs from the OnConnect handler.
func (p *RealPublisher) replay() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushLocked()
}

// flushLocked sends the backlog oldest first. If the connection drops
// part way the rest goes back in the buffer. Caller holds p.mu.
func (p *RealPublisher) flushLocked() {
	if p.buf == nil || p.buf.len() == 0 {
		return
	}
	msgs := p.buf.drainAll()
	log.Printf("mqtt: replaying %d buffered messages", len(msgs))
	for i, m := range msgs {
		if !p.client.IsConnectionOpen() {
			log.Printf("mqtt: connection lost during replay, keeping %d messages", len(msgs)-i)
			for _, rest := range msgs[i:] {
				p.buf.push(rest)
			}
			return
		}
		if err := p.send(m); err != nil {
			log.Printf("mqtt: replay to %s failed: %v", m.topic, err)
		}
	}
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.buf == nil {
		return 0
	}
	return p.buf.len()
}

// IsConnected reports whether the client currently has an open connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
