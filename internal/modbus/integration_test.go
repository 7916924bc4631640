package modbus

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"plcsim/internal/memspace"
)

// TestTCPModuleServesRealConnection drives the engine through a real
// net.Conn and the MBAP frame codec, not just Handle() directly.
func TestTCPModuleServesRealConnection(t *testing.T) {
	memory := memspace.New(memspace.Config{Blen: 8, W16Len: 4})

	server, client := net.Pipe()
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	module := NewTCPModule(zap.NewNop())
	done := make(chan struct{})
	go func() {
		module.Serve(ctx, server, memory)
		close(done)
	}()

	pdu := req(FuncWriteSingleRegister, append(u16be(0), u16be(42)...)...)
	require.NoError(t, writeADU(client, 1, 1, pdu))

	resp, err := readADU(client)
	require.NoError(t, err)
	require.Equal(t, uint16(1), resp.transactionID)
	require.Equal(t, pdu, resp.pdu)

	client.Close()
	<-done
}
