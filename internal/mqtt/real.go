package mqtt

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/soundscape/internal/logic"
)

// Options configures a RealPublisher.
type Options struct {
	Broker   string
	ClientID string
	Topics   Topics
	// Inputs receives messages from the input topics. Nil disables subscribing.
	Inputs *Inputs
	// BufferSize bounds the offline queue. Zero uses DefaultBufferSize.
	BufferSize int
	// OnReconnect runs after a reconnect once the queue has been flushed.
	OnReconnect func()
	Logger      *slog.Logger
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are queued and flushed on reconnect.
type RealPublisher struct {
	client paho.Client
	topics Topics
	inputs *Inputs
	logger *slog.Logger

	mu          sync.Mutex
	buffer      *ringBuffer
	connected   bool
	replaying   bool
	everOnline  bool
	onReconnect func()
}

// NewRealPublisher creates a publisher connected to the given broker. The
// broker keeps a retained OFFLINE will on the system topic.
func NewRealPublisher(opts Options) (*RealPublisher, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	size := opts.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}

	p := &RealPublisher{
		topics:      opts.Topics,
		inputs:      opts.Inputs,
		logger:      logger,
		buffer:      newRingBuffer(size),
		onReconnect: opts.OnReconnect,
	}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE", Reason: "MQTT_DISCONNECT"})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	clientOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(opts.Topics.System, will, 1, true).
		SetOnConnectHandler(p.handleConnect).
		SetConnectionLostHandler(p.handleConnectionLost)

	p.client = paho.NewClient(clientOpts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

func (p *RealPublisher) handleConnect(c paho.Client) {
	if p.inputs != nil {
		for _, topic := range p.topics.Inputs() {
			c.Subscribe(topic, 1, func(_ paho.Client, m paho.Message) {
				if err := p.inputs.Handle(m.Topic(), m.Payload(), time.Now()); err != nil {
					p.logger.Warn("mqtt: dropped input", "topic", m.Topic(), "error", err)
				}
			})
		}
	}

	p.mu.Lock()
	p.connected = true
	p.replaying = true
	reconnect := p.everOnline
	p.everOnline = true
	p.mu.Unlock()

	if n := p.replay(c); n > 0 {
		p.logger.Info("mqtt: replayed buffered messages", "count", n)
	}

	if reconnect {
		p.logger.Info("mqtt: reconnected")
		if p.onReconnect != nil {
			go p.onReconnect()
		}
	}
}

// replay flushes the offline queue in order. Publishes made meanwhile keep
// queueing behind it, so nothing overtakes an older buffered message.
func (p *RealPublisher) replay(c paho.Client) int {
	n := 0
	for {
		p.mu.Lock()
		if !p.connected {
			p.replaying = false
			p.mu.Unlock()
			return n
		}
		pending := p.buffer.drainAll()
		if len(pending) == 0 {
			p.replaying = false
			p.mu.Unlock()
			return n
		}
		p.mu.Unlock()

		for _, msg := range pending {
			token := c.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
			if !token.WaitTimeout(5 * time.Second) {
				p.logger.Warn("mqtt: replay timeout", "topic", msg.topic)
			}
		}
		n += len(pending)
	}
}

func (p *RealPublisher) handleConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	p.logger.Warn("mqtt: connection lost", "error", err)
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	msg := bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained}

	p.mu.Lock()
	if !p.connected || p.replaying {
		var dropped bool
		if retained {
			dropped = p.buffer.replace(msg)
		} else {
			dropped = p.buffer.push(msg)
		}
		p.mu.Unlock()
		if dropped {
			p.logger.Warn("mqtt: buffer full, dropping oldest", "capacity", p.buffer.capacity)
		}
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// PublishScene sends a scene confirmation to the MQTT broker.
func (p *RealPublisher) PublishScene(event logic.SceneEvent) error {
	payload, err := FormatScenePayload(event)
	if err != nil {
		return fmt.Errorf("format scene payload: %w", err)
	}
	return p.publish(p.topics.SceneEvents, 1, false, payload)
}

// PublishPlan sends the score plan as a retained message.
func (p *RealPublisher) PublishPlan(event PlanEvent) error {
	payload, err := FormatPlanPayload(event)
	if err != nil {
		return fmt.Errorf("format plan payload: %w", err)
	}
	return p.publish(p.topics.Plan, 0, true, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) so shutdown and startup are delivered
	return p.publish(p.topics.System, 1, event.Retained, payload)
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
