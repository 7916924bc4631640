// Command plcsim runs the PLC simulator: a Memory Space, a set of I/O
// simulation tasks, and a Modbus/TCP fieldbus dispatcher, wired together
// from a YAML configuration document.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"plcsim/internal/config"
	"plcsim/internal/eventbus"
	"plcsim/internal/fieldbus"
	"plcsim/internal/iosim"
	"plcsim/internal/logging"
	"plcsim/internal/memspace"
	"plcsim/internal/modbus"
	"plcsim/internal/telemetry/metrics"
	"plcsim/internal/telemetry/wshub"
)

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: plcsim [--log-level LEVEL] <config-path>")
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var logLevelOverride string
	var configPath string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--help", "-h":
			usage()
			return 0
		case "--log-level":
			if i+1 >= len(args) {
				usage()
				return 2
			}
			logLevelOverride = args[i+1]
			i++
		default:
			if configPath != "" {
				usage()
				return 2
			}
			configPath = args[i]
		}
	}

	if configPath == "" {
		usage()
		return 2
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "plcsim:", err)
		return 1
	}

	if logLevelOverride != "" {
		cfg.Logging.Level = logLevelOverride
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		fmt.Fprintln(os.Stderr, "plcsim: failed to initialize logger:", err)
		return 1
	}
	defer logger.Sync()

	logger.Info("starting plcsim",
		zap.String("config", configPath),
		zap.Uint32("blen", cfg.MemoryManager.Memspace.Blen),
		zap.Uint32("w16len", cfg.MemoryManager.Memspace.W16Len),
	)

	memory := memspace.New(memspace.Config{
		Blen:   cfg.MemoryManager.Memspace.Blen,
		W16Len: cfg.MemoryManager.Memspace.W16Len,
		W32Len: cfg.MemoryManager.Memspace.W32Len,
		W64Len: cfg.MemoryManager.Memspace.W64Len,
	})

	bus := eventbus.New()
	metricsRegistry := metrics.New()
	memory.OnOp = func(section memspace.Section, op string) {
		metricsRegistry.MemoryOps.WithLabelValues(section.String(), op).Inc()
	}

	telemetryBridge := wireTelemetry(cfg, logger, bus)

	sim := iosim.New(logger, memory, bus)
	sim.OnTick = func(taskID string) {
		metricsRegistry.SimulationTicks.WithLabelValues(taskID).Inc()
	}
	sim.OnError = func(taskID string) {
		metricsRegistry.SimulationErrors.WithLabelValues(taskID).Inc()
	}
	taskConfigs, err := taskConfigsFromSimulations(cfg.IOManager.Simulations)
	if err != nil {
		fmt.Fprintln(os.Stderr, "plcsim:", err)
		return 1
	}
	if err := sim.Start(taskConfigs); err != nil {
		fmt.Fprintln(os.Stderr, "plcsim:", err)
		return 1
	}

	registry := fieldbus.NewRegistry()
	modbusModule := modbus.NewTCPModule(logger)
	modbusModule.OnRequest = func(fc byte, exception byte) {
		metricsRegistry.ModbusRequests.WithLabelValues(fmt.Sprintf("0x%02X", fc)).Inc()
		if exception != 0 {
			metricsRegistry.ModbusExceptions.WithLabelValues(fmt.Sprintf("0x%02X", exception)).Inc()
		}
	}
	modbusModule.ObserveDuration = func(d time.Duration) {
		metricsRegistry.RequestDuration.Observe(d.Seconds())
	}
	registry.Register("modbus-tcp", modbusModule)

	dispatcher := fieldbus.New(logger, registry, memory)
	modules := make([]fieldbus.ModuleConfig, 0, len(cfg.FieldbusManager.Modules))
	for _, m := range cfg.FieldbusManager.Modules {
		modules = append(modules, fieldbus.ModuleConfig{
			Module: m.Module, Class: m.Class, ID: m.ID, Port: m.Port,
		})
	}
	if err := dispatcher.Start(fieldbus.ListenerConfig{
		Host:    cfg.Listener.Host,
		Backlog: cfg.Listener.Backlog,
	}, modules); err != nil {
		fmt.Fprintln(os.Stderr, "plcsim:", err)
		sim.Stop()
		return 1
	}

	hub := wshub.New(logger, bus)
	hub.Start()

	if cfg.Telemetry.MetricsPort > 0 {
		go serveMetrics(logger, metricsRegistry, hub, cfg.Telemetry.MetricsPort)
	}

	logger.Info("plcsim running; press ctrl-c to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	dispatcher.Stop()
	sim.Stop()
	telemetryBridge.Stop()
	hub.Stop()
	bus.Close()

	return 0
}
