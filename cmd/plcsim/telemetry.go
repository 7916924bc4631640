package main

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"plcsim/internal/config"
	"plcsim/internal/eventbus"
	"plcsim/internal/telemetry/bridge"
	"plcsim/internal/telemetry/metrics"
	"plcsim/internal/telemetry/wshub"
)

// wireTelemetry attaches whichever telemetry publishers are enabled in
// config to a Bridge subscribed to the event bus. A publisher that
// fails to connect at startup is logged and skipped; it never blocks
// the simulator from starting.
func wireTelemetry(cfg *config.Config, logger *zap.Logger, bus *eventbus.Bus) *bridge.Bridge {
	instance := cfg.Telemetry.Instance
	if instance == "" {
		instance = "plcsim"
	}

	b := bridge.New(logger, instance, bus, nil)

	if cfg.Telemetry.MQTT.Enabled {
		pub, err := bridge.NewMQTTPublisher(bridge.MQTTConfig{
			Broker:   cfg.Telemetry.MQTT.Broker,
			ClientID: cfg.Telemetry.MQTT.ClientID,
			QoS:      cfg.Telemetry.MQTT.QoS,
		}, logger)
		if err != nil {
			logger.Warn("telemetry: mqtt publisher disabled", zap.Error(err))
		} else {
			b.Attach("mqtt", pub)
		}
	}

	if cfg.Telemetry.NATS.Enabled {
		pub, err := bridge.NewNATSPublisher(bridge.NATSConfig{URL: cfg.Telemetry.NATS.URL}, logger)
		if err != nil {
			logger.Warn("telemetry: nats publisher disabled", zap.Error(err))
		} else {
			b.Attach("nats", pub)
		}
	}

	b.Start()
	return b
}

func serveMetrics(logger *zap.Logger, registry *metrics.Registry, hub *wshub.Hub, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.Handler())
	mux.HandleFunc("/ws", hub.ServeHTTP)

	addr := fmt.Sprintf(":%d", port)
	logger.Info("metrics server listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server failed", zap.Error(err))
	}
}
