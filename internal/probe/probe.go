// Package probe is a small Modbus/TCP client, used both by the
// cmd/modbus-probe operator tool and by integration tests, that drives
// a battery of requests against a running simulator and reports
// pass/fail. It is the natural client-side complement to the server
// this repository implements, and exercises github.com/goburrow/modbus
// from the consuming side.
package probe

import (
	"fmt"
	"time"

	"github.com/goburrow/modbus"
)

// Result is one checked assertion.
type Result struct {
	Name string
	Err  error
}

// Run connects to addr and exercises coil and register round trips,
// returning one Result per check.
func Run(addr string) []Result {
	handler := modbus.NewTCPClientHandler(addr)
	handler.Timeout = 5 * time.Second
	handler.SlaveId = 1

	if err := handler.Connect(); err != nil {
		return []Result{{Name: "connect", Err: fmt.Errorf("connect to %s: %w", addr, err)}}
	}
	defer handler.Close()

	client := modbus.NewClient(handler)

	var results []Result

	results = append(results, check("write single coil", func() error {
		_, err := client.WriteSingleCoil(3, 0xFF00)
		return err
	}))

	results = append(results, check("coil round trip", func() error {
		bytes, err := client.ReadCoils(0, 8)
		if err != nil {
			return err
		}
		if len(bytes) != 1 || bytes[0] != 0x08 {
			return fmt.Errorf("expected coil byte 0x08, got %x", bytes)
		}
		return nil
	}))

	results = append(results, check("write multiple registers", func() error {
		_, err := client.WriteMultipleRegisters(0, 3, []byte{0x00, 0x01, 0x00, 0x02, 0x00, 0x03})
		return err
	}))

	results = append(results, check("register round trip", func() error {
		regs, err := client.ReadHoldingRegisters(0, 3)
		if err != nil {
			return err
		}
		expected := []byte{0x00, 0x01, 0x00, 0x02, 0x00, 0x03}
		for i := range expected {
			if regs[i] != expected[i] {
				return fmt.Errorf("expected %x, got %x", expected, regs)
			}
		}
		return nil
	}))

	return results
}

func check(name string, fn func() error) Result {
	return Result{Name: name, Err: fn()}
}
