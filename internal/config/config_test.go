package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeTempConfig(t, `
listener:
  host: 0.0.0.0
  backlog: 16
fieldbus_manager:
  modules:
    - module: modbus
      class: modbus-tcp
      id: plc1
      port: 5020
memory_manager:
  memspace:
    blen: 10
    w16len: 16
io_manager:
  simulations:
    - id: counter1
      memspace: {section: words16, addr: 0, nwords: 1}
      function: {type: counter, range: [1, 11]}
      pause: 1.0
logging:
  level: info
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Listener.Host)
	assert.Equal(t, uint32(16), cfg.MemoryManager.Memspace.Blen, "blen 10 should round up to 16")
	assert.Len(t, cfg.FieldbusManager.Modules, 1)
	assert.Equal(t, "modbus-tcp", cfg.FieldbusManager.Modules[0].Class)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestValidateRejectsDuplicatePorts(t *testing.T) {
	cfg := &Config{
		FieldbusManager: FieldbusManagerConfig{
			Modules: []ModuleConfig{
				{Module: "modbus", Port: 5020},
				{Module: "modbus", Port: 5020},
			},
		},
	}
	err := cfg.Validate()
	assert.Error(t, err)
}

func TestValidateRejectsUnknownFunctionType(t *testing.T) {
	cfg := &Config{
		IOManager: IOManagerConfig{
			Simulations: []SimulationConfig{
				{ID: "bad", Function: FunctionConfig{Type: "not-a-function"}},
			},
		},
	}
	err := cfg.Validate()
	assert.Error(t, err)
}

func TestValidateRejectsNegativePause(t *testing.T) {
	cfg := &Config{
		IOManager: IOManagerConfig{
			Simulations: []SimulationConfig{
				{ID: "bad", Function: FunctionConfig{Type: "static"}, Pause: -1},
			},
		},
	}
	err := cfg.Validate()
	assert.Error(t, err)
}

func TestValidateRoundsBlenUpToMultipleOf8(t *testing.T) {
	cfg := &Config{}
	cfg.MemoryManager.Memspace.Blen = 1
	require.NoError(t, cfg.Validate())
	assert.Equal(t, uint32(8), cfg.MemoryManager.Memspace.Blen)
}

func TestMemspaceRefCountPrefersBits(t *testing.T) {
	ref := MemspaceRef{NBits: 12, NWords: 3}
	assert.Equal(t, uint32(12), ref.Count())

	ref2 := MemspaceRef{NWords: 4}
	assert.Equal(t, uint32(4), ref2.Count())
}
