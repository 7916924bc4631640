// Package modbus implements the Modbus/TCP protocol engine: MBAP
// framing, function-code dispatch against a Memory Space, and exception
// reporting.
package modbus

import (
	"encoding/binary"
	"fmt"
	"time"

	"plcsim/internal/memspace"
)

// Function codes supported by the engine.
const (
	FuncReadCoils             byte = 0x01
	FuncReadDiscreteInputs    byte = 0x02
	FuncReadHoldingRegisters  byte = 0x03
	FuncReadInputRegisters    byte = 0x04
	FuncWriteSingleCoil       byte = 0x05
	FuncWriteSingleRegister   byte = 0x06
	FuncWriteMultipleCoils    byte = 0x0F
	FuncWriteMultipleRegisters byte = 0x10
)

// Exception codes.
const (
	ExIllegalFunction    byte = 0x01
	ExIllegalDataAddress byte = 0x02
	ExIllegalDataValue   byte = 0x03
)

const exceptionFlag byte = 0x80

// Quantity limits for read/write requests, per the Modbus Application
// Protocol specification.
const (
	maxCoilReadQty    = 2000
	maxRegisterReadQty = 125
	maxCoilWriteQty   = 1968
	maxRegisterWriteQty = 123
)

// modbusError carries the exception code for a response; it never escapes the package as a Go error return — it is
// translated directly into bytes by Handle.
type modbusError struct {
	exception byte
}

func (e *modbusError) Error() string {
	return fmt.Sprintf("modbus exception 0x%02X", e.exception)
}

// Engine maps Modbus function codes onto Memory Space operations. Coils
// and discrete inputs both address the bits section; holding and input
// registers both address the words16 section — this simulator does not
// distinguish read-only from read-write address spaces.
type Engine struct {
	memory *memspace.MemorySpace

	// OnRequest, if set, is called once per handled PDU with the
	// function code and whether it ended in an exception, for metrics.
	OnRequest func(functionCode byte, exception byte)

	// ObserveDuration, if set, is called once per handled PDU with the
	// time spent in dispatch, for metrics.
	ObserveDuration func(d time.Duration)
}

// NewEngine binds a protocol engine to a Memory Space.
func NewEngine(memory *memspace.MemorySpace) *Engine {
	return &Engine{memory: memory}
}

// Handle dispatches one request PDU and returns the response PDU
// (success or exception). It never returns a Go error: any failure is
// represented in the returned bytes per the Modbus wire protocol.
func (e *Engine) Handle(pdu []byte) []byte {
	if e.ObserveDuration != nil {
		start := time.Now()
		defer func() { e.ObserveDuration(time.Since(start)) }()
	}

	if len(pdu) == 0 {
		return e.exceptionResponse(0, ExIllegalFunction)
	}

	fc := pdu[0]
	body := pdu[1:]

	resp, err := e.dispatch(fc, body)
	if err != nil {
		var mbErr *modbusError
		exception := ExIllegalFunction
		if asModbusError(err, &mbErr) {
			exception = mbErr.exception
		}
		if e.OnRequest != nil {
			e.OnRequest(fc, exception)
		}
		return e.exceptionResponse(fc, exception)
	}

	if e.OnRequest != nil {
		e.OnRequest(fc, 0)
	}
	return append([]byte{fc}, resp...)
}

func asModbusError(err error, target **modbusError) bool {
	if me, ok := err.(*modbusError); ok {
		*target = me
		return true
	}
	return false
}

func (e *Engine) exceptionResponse(fc byte, exception byte) []byte {
	return []byte{fc | exceptionFlag, exception}
}

func (e *Engine) dispatch(fc byte, body []byte) ([]byte, error) {
	switch fc {
	case FuncReadCoils:
		return e.readBits(body, memspace.Bits, maxCoilReadQty)
	case FuncReadDiscreteInputs:
		return e.readBits(body, memspace.Bits, maxCoilReadQty)
	case FuncReadHoldingRegisters:
		return e.readRegisters(body, maxRegisterReadQty)
	case FuncReadInputRegisters:
		return e.readRegisters(body, maxRegisterReadQty)
	case FuncWriteSingleCoil:
		return e.writeSingleCoil(body)
	case FuncWriteSingleRegister:
		return e.writeSingleRegister(body)
	case FuncWriteMultipleCoils:
		return e.writeMultipleCoils(body)
	case FuncWriteMultipleRegisters:
		return e.writeMultipleRegisters(body)
	default:
		return nil, &modbusError{exception: ExIllegalFunction}
	}
}

func (e *Engine) readBits(body []byte, section memspace.Section, maxQty int) ([]byte, error) {
	if len(body) != 4 {
		return nil, &modbusError{exception: ExIllegalDataValue}
	}
	addr := binary.BigEndian.Uint16(body[0:2])
	qty := binary.BigEndian.Uint16(body[2:4])

	if qty < 1 || int(qty) > maxQty {
		return nil, &modbusError{exception: ExIllegalDataValue}
	}

	bits, err := e.memory.GetBits(uint32(addr), uint32(qty))
	if err != nil {
		return nil, &modbusError{exception: ExIllegalDataAddress}
	}

	byteCount := (len(bits) + 7) / 8
	out := make([]byte, 1+byteCount)
	out[0] = byte(byteCount)
	for i, bit := range bits {
		if bit != 0 {
			out[1+i/8] |= 1 << uint(i%8)
		}
	}
	return out, nil
}

func (e *Engine) readRegisters(body []byte, maxQty int) ([]byte, error) {
	if len(body) != 4 {
		return nil, &modbusError{exception: ExIllegalDataValue}
	}
	addr := binary.BigEndian.Uint16(body[0:2])
	qty := binary.BigEndian.Uint16(body[2:4])

	if qty < 1 || int(qty) > maxQty {
		return nil, &modbusError{exception: ExIllegalDataValue}
	}

	regs, err := e.memory.GetWords(memspace.Words16, uint32(addr), uint32(qty))
	if err != nil {
		return nil, &modbusError{exception: ExIllegalDataAddress}
	}

	out := make([]byte, 1+2*len(regs))
	out[0] = byte(2 * len(regs))
	for i, r := range regs {
		binary.BigEndian.PutUint16(out[1+2*i:], uint16(r))
	}
	return out, nil
}

func (e *Engine) writeSingleCoil(body []byte) ([]byte, error) {
	if len(body) != 4 {
		return nil, &modbusError{exception: ExIllegalDataValue}
	}
	addr := binary.BigEndian.Uint16(body[0:2])
	value := binary.BigEndian.Uint16(body[2:4])

	if value != 0xFF00 && value != 0x0000 {
		return nil, &modbusError{exception: ExIllegalDataValue}
	}

	bit := uint8(0)
	if value == 0xFF00 {
		bit = 1
	}
	if err := e.memory.SetBits(uint32(addr), []uint8{bit}); err != nil {
		return nil, &modbusError{exception: ExIllegalDataAddress}
	}

	return append([]byte{}, body...), nil
}

func (e *Engine) writeSingleRegister(body []byte) ([]byte, error) {
	if len(body) != 4 {
		return nil, &modbusError{exception: ExIllegalDataValue}
	}
	addr := binary.BigEndian.Uint16(body[0:2])
	value := binary.BigEndian.Uint16(body[2:4])

	if err := e.memory.SetWords(memspace.Words16, uint32(addr), []uint64{uint64(value)}); err != nil {
		return nil, &modbusError{exception: ExIllegalDataAddress}
	}

	return append([]byte{}, body...), nil
}

func (e *Engine) writeMultipleCoils(body []byte) ([]byte, error) {
	if len(body) < 5 {
		return nil, &modbusError{exception: ExIllegalDataValue}
	}
	addr := binary.BigEndian.Uint16(body[0:2])
	qty := binary.BigEndian.Uint16(body[2:4])
	byteCount := body[4]
	data := body[5:]

	if qty < 1 || int(qty) > maxCoilWriteQty {
		return nil, &modbusError{exception: ExIllegalDataValue}
	}
	expectedBytes := (int(qty) + 7) / 8
	if int(byteCount) != expectedBytes || len(data) != expectedBytes {
		return nil, &modbusError{exception: ExIllegalDataValue}
	}

	bits := make([]uint8, qty)
	for i := uint16(0); i < qty; i++ {
		if data[i/8]&(1<<uint(i%8)) != 0 {
			bits[i] = 1
		}
	}
	if err := e.memory.SetBits(uint32(addr), bits); err != nil {
		return nil, &modbusError{exception: ExIllegalDataAddress}
	}

	out := make([]byte, 4)
	binary.BigEndian.PutUint16(out[0:2], addr)
	binary.BigEndian.PutUint16(out[2:4], qty)
	return out, nil
}

func (e *Engine) writeMultipleRegisters(body []byte) ([]byte, error) {
	if len(body) < 5 {
		return nil, &modbusError{exception: ExIllegalDataValue}
	}
	addr := binary.BigEndian.Uint16(body[0:2])
	qty := binary.BigEndian.Uint16(body[2:4])
	byteCount := body[4]
	data := body[5:]

	if qty < 1 || int(qty) > maxRegisterWriteQty {
		return nil, &modbusError{exception: ExIllegalDataValue}
	}
	expectedBytes := int(qty) * 2
	if int(byteCount) != expectedBytes || len(data) != expectedBytes {
		return nil, &modbusError{exception: ExIllegalDataValue}
	}

	regs := make([]uint64, qty)
	for i := uint16(0); i < qty; i++ {
		regs[i] = uint64(binary.BigEndian.Uint16(data[2*i:]))
	}
	if err := e.memory.SetWords(memspace.Words16, uint32(addr), regs); err != nil {
		return nil, &modbusError{exception: ExIllegalDataAddress}
	}

	out := make([]byte, 4)
	binary.BigEndian.PutUint16(out[0:2], addr)
	binary.BigEndian.PutUint16(out[2:4], qty)
	return out, nil
}
