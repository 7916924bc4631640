// Package config loads and validates the simulator's YAML configuration
// document: listener, fieldbus modules, memory section sizes, simulation
// tasks, logging, and telemetry.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration document. Unknown keys are
// ignored by yaml.v3's default unmarshal behavior.
type Config struct {
	Listener        ListenerConfig       `yaml:"listener"`
	FieldbusManager FieldbusManagerConfig `yaml:"fieldbus_manager"`
	MemoryManager   MemoryManagerConfig   `yaml:"memory_manager"`
	IOManager       IOManagerConfig       `yaml:"io_manager"`
	Logging         LoggingConfig         `yaml:"logging"`
	Telemetry       TelemetryConfig       `yaml:"telemetry"`
}

type ListenerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Backlog int    `yaml:"backlog"`
}

type FieldbusManagerConfig struct {
	Modules []ModuleConfig `yaml:"modules"`
}

type ModuleConfig struct {
	Module string                 `yaml:"module"`
	Class  string                 `yaml:"class"`
	ID     string                 `yaml:"id"`
	Port   int                    `yaml:"port"`
	Conf   map[string]interface{} `yaml:"conf"`
}

type MemoryManagerConfig struct {
	Memspace MemspaceConfig `yaml:"memspace"`
}

type MemspaceConfig struct {
	Blen   uint32 `yaml:"blen"`
	W16Len uint32 `yaml:"w16len"`
	W32Len uint32 `yaml:"w32len"`
	W64Len uint32 `yaml:"w64len"`
}

type IOManagerConfig struct {
	Simulations []SimulationConfig `yaml:"simulations"`
}

type SimulationConfig struct {
	ID       string           `yaml:"id"`
	Target   MemspaceRef      `yaml:"memspace"`
	Source   *MemspaceRef     `yaml:"source"`
	Operands []OperandConfig  `yaml:"operands"`
	Function FunctionConfig   `yaml:"function"`
	Pause    float64          `yaml:"pause"`
}

// MemspaceRef names a slice of Memory Space: a section, a starting
// address, and either a word count or a bit count depending on section.
type MemspaceRef struct {
	Section string `yaml:"section"`
	Addr    uint32 `yaml:"addr"`
	NWords  uint32 `yaml:"nwords"`
	NBits   uint32 `yaml:"nbits"`
}

// Count returns whichever of nwords/nbits applies to this reference.
func (r MemspaceRef) Count() uint32 {
	if r.NBits != 0 {
		return r.NBits
	}
	return r.NWords
}

type OperandConfig struct {
	Value    *uint64      `yaml:"value"`
	Memspace *MemspaceRef `yaml:"memspace"`
}

type FunctionConfig struct {
	Type     string   `yaml:"type"`
	Value    uint64   `yaml:"value"`
	Range    []int64  `yaml:"range"`
	Transform struct {
		In  []uint64 `yaml:"in"`
		Out uint64   `yaml:"out"`
	} `yaml:"transform"`
	Operator string `yaml:"operator"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type TelemetryConfig struct {
	MetricsPort int        `yaml:"metrics_port"`
	Instance    string     `yaml:"instance"`
	MQTT        MQTTConfig `yaml:"mqtt"`
	NATS        NATSConfig `yaml:"nats"`
}

type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	QoS      byte   `yaml:"qos"`
}

type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// Load reads and validates a configuration document from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	return &cfg, nil
}

var validFunctionTypes = map[string]bool{
	"static": true, "binary": true, "counter": true,
	"sine": true, "cosine": true, "sawtooth": true, "square": true,
	"randrange": true, "lognormal": true, "uniform": true,
	"copy": true, "transform": true, "operation": true,
}

// Validate checks invariants that must hold before any component starts:
// the bit section length rounded to a multiple of 8, unique module
// ports, recognised simulation function types, and non-negative pauses.
func (c *Config) Validate() error {
	c.MemoryManager.Memspace.Blen = roundUpToMultipleOf8(c.MemoryManager.Memspace.Blen)

	seenPorts := make(map[int]string)
	for _, m := range c.FieldbusManager.Modules {
		if other, dup := seenPorts[m.Port]; dup {
			return fmt.Errorf("duplicate port %d used by modules %q and %q", m.Port, other, m.Module)
		}
		seenPorts[m.Port] = m.Module
	}

	for _, sim := range c.IOManager.Simulations {
		if !validFunctionTypes[sim.Function.Type] {
			return fmt.Errorf("simulation %q: unknown function type %q", sim.ID, sim.Function.Type)
		}
		if sim.Pause < 0 {
			return fmt.Errorf("simulation %q: pause must be non-negative", sim.ID)
		}
	}

	return nil
}

func roundUpToMultipleOf8(n uint32) uint32 {
	return (n + 7) / 8 * 8
}
