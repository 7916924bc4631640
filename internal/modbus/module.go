package modbus

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"

	"plcsim/internal/memspace"
)

// TCPModule adapts the Modbus/TCP engine to the fieldbus Dispatcher's
// Module capability set: Serve(ctx, conn, memory).
type TCPModule struct {
	logger *zap.Logger

	// OnRequest and ObserveDuration, when set, are forwarded to every
	// session's Engine for per-request metrics.
	OnRequest       func(functionCode byte, exception byte)
	ObserveDuration func(d time.Duration)
}

// NewTCPModule creates a Modbus/TCP fieldbus module.
func NewTCPModule(logger *zap.Logger) *TCPModule {
	return &TCPModule{logger: logger}
}

// Serve runs a Modbus/TCP protocol session for one accepted connection
// until the connection closes or ctx is cancelled.
func (m *TCPModule) Serve(ctx context.Context, conn net.Conn, memory *memspace.MemorySpace) {
	engine := NewEngine(memory)
	engine.OnRequest = m.OnRequest
	engine.ObserveDuration = m.ObserveDuration

	session := NewSession(conn, engine, m.logger)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	session.Serve()
}
