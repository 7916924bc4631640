package modbus

import (
	"errors"
	"io"
	"net"

	"go.uber.org/zap"
)

// Session owns one accepted connection and repeatedly reads an ADU,
// dispatches it against the Engine, and writes the response ADU. It
// terminates on EOF, I/O error, or frame-level malformedness.
type Session struct {
	conn   net.Conn
	engine *Engine
	logger *zap.Logger
}

// NewSession binds a session to an accepted connection and an engine.
func NewSession(conn net.Conn, engine *Engine, logger *zap.Logger) *Session {
	return &Session{conn: conn, engine: engine, logger: logger}
}

// Serve runs the read-dispatch-write loop until the connection closes.
func (s *Session) Serve() {
	defer s.conn.Close()

	for {
		request, err := readADU(s.conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debug("modbus session closing",
					zap.String("remote", s.conn.RemoteAddr().String()), zap.Error(err))
			}
			return
		}

		response := s.engine.Handle(request.pdu)

		if err := writeADU(s.conn, request.transactionID, request.unitID, response); err != nil {
			s.logger.Debug("modbus session write failed",
				zap.String("remote", s.conn.RemoteAddr().String()), zap.Error(err))
			return
		}
	}
}
