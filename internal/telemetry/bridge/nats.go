package bridge

import (
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"plcsim/internal/resilience"
)

// NATSConfig configures the NATS publisher.
type NATSConfig struct {
	URL string
}

// NATSPublisher publishes telemetry onto a NATS subject derived from
// the MQTT-style topic by replacing '/' with '.'.
type NATSPublisher struct {
	conn    *nats.Conn
	breaker *resilience.Breaker
}

// NewNATSPublisher connects to url and returns a ready publisher.
func NewNATSPublisher(cfg NATSConfig, logger *zap.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(cfg.URL, nats.Timeout(5*time.Second), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("nats: connect to %s: %w", cfg.URL, err)
	}

	return &NATSPublisher{
		conn:    conn,
		breaker: resilience.NewNamedBreaker("nats-publish", 5, 30*time.Second, logger),
	}, nil
}

// Publish sends payload to the subject derived from topic.
func (p *NATSPublisher) Publish(topic string, payload []byte) error {
	subject := strings.ReplaceAll(topic, "/", ".")
	return p.breaker.Call(func() error {
		return p.conn.Publish(subject, payload)
	})
}

// Close closes the NATS connection without draining it.
func (p *NATSPublisher) Close() {
	p.conn.Close()
}
