// Package bridge mirrors simulation lifecycle events onto optional MQTT
// and NATS uplinks. Both publishers are independent and never hold a
// Memory Space lock; a broker outage degrades telemetry only.
package bridge

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"plcsim/internal/eventbus"
)

// eventPayload is what gets published for every SimEvent.
type eventPayload struct {
	Instance  string    `json:"instance"`
	Task      string    `json:"task"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher is the minimal capability a telemetry uplink exposes.
type Publisher interface {
	Publish(topic string, payload []byte) error
	Close()
}

// Bridge subscribes to the event bus and fans published events out to
// every configured Publisher.
type Bridge struct {
	logger     *zap.Logger
	instance   string
	publishers map[string]Publisher

	bus *eventbus.Bus
	sub chan eventbus.Event
	now func() time.Time
}

// New creates a Bridge with the given instance name (used in topic
// names) and a clock function, so tests can control timestamps.
func New(logger *zap.Logger, instance string, bus *eventbus.Bus, now func() time.Time) *Bridge {
	if now == nil {
		now = time.Now
	}
	return &Bridge{
		logger:     logger,
		instance:   instance,
		publishers: make(map[string]Publisher),
		bus:        bus,
		now:        now,
	}
}

// Attach registers a named publisher (e.g. "mqtt", "nats").
func (b *Bridge) Attach(name string, p Publisher) {
	b.publishers[name] = p
}

// Start begins forwarding bus events to every attached publisher. It
// returns immediately; forwarding happens on its own goroutine.
func (b *Bridge) Start() {
	b.sub = b.bus.Subscribe(64)
	go b.loop()
}

func (b *Bridge) loop() {
	for ev := range b.sub {
		payload := eventPayload{
			Instance:  b.instance,
			Task:      ev.Task,
			Kind:      ev.Kind,
			Detail:    ev.Detail,
			Timestamp: b.now(),
		}
		data, err := json.Marshal(payload)
		if err != nil {
			b.logger.Error("telemetry: failed to marshal event", zap.Error(err))
			continue
		}

		topic := b.topicFor(ev)
		for name, p := range b.publishers {
			if err := p.Publish(topic, data); err != nil {
				b.logger.Warn("telemetry publish failed",
					zap.String("publisher", name), zap.String("topic", topic), zap.Error(err))
			}
		}
	}
}

func (b *Bridge) topicFor(ev eventbus.Event) string {
	if ev.Kind == "error" {
		return "plcsim/" + b.instance + "/alarms"
	}
	return "plcsim/" + b.instance + "/events"
}

// Stop unsubscribes from the bus and closes every attached publisher.
func (b *Bridge) Stop() {
	if b.sub != nil {
		b.bus.Unsubscribe(b.sub)
	}
	for _, p := range b.publishers {
		p.Close()
	}
}
