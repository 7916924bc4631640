package bridge

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"plcsim/internal/resilience"
)

// MQTTConfig configures the MQTT publisher.
type MQTTConfig struct {
	Broker   string
	ClientID string
	QoS      byte
}

// MQTTPublisher publishes telemetry over MQTT using paho, with its
// outbound Publish calls guarded by a circuit breaker so a down broker
// never piles up blocked goroutines.
type MQTTPublisher struct {
	client  mqtt.Client
	qos     byte
	breaker *resilience.Breaker
	logger  *zap.Logger
}

// NewMQTTPublisher connects to broker and returns a ready publisher.
func NewMQTTPublisher(cfg MQTTConfig, logger *zap.Logger) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		return nil, fmt.Errorf("mqtt: connect to %s: %w", cfg.Broker, token.Error())
	}

	return &MQTTPublisher{
		client:  client,
		qos:     cfg.QoS,
		breaker: resilience.NewNamedBreaker("mqtt-publish", 5, 30*time.Second, logger),
		logger:  logger,
	}, nil
}

// Publish sends payload to topic through the circuit breaker.
func (p *MQTTPublisher) Publish(topic string, payload []byte) error {
	return p.breaker.Call(func() error {
		token := p.client.Publish(topic, p.qos, false, payload)
		if !token.WaitTimeout(5 * time.Second) {
			return fmt.Errorf("mqtt: publish to %s timed out", topic)
		}
		return token.Error()
	})
}

// Close disconnects the MQTT client.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
