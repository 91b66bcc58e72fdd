package privdrop

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestControl_BindsUDP4WithReusePort(t *testing.T) {
	lc := net.ListenConfig{Control: Control(SocketOptions{RecvBufferSize: 1 << 20})}

	conn, err := lc.ListenPacket(context.Background(), "udp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	// A second listener on the same address only succeeds if SO_REUSEPORT
	// was actually set by Control.
	conn2, err := lc.ListenPacket(context.Background(), "udp4", conn.LocalAddr().String())
	require.NoError(t, err)
	defer conn2.Close()
}

func TestControl_BindsUDP6OnlyWhenRequested(t *testing.T) {
	lc := net.ListenConfig{Control: Control(SocketOptions{OnlyIPv6: true})}

	conn, err := lc.ListenPacket(context.Background(), "udp6", "[::1]:0")
	if err != nil {
		t.Skipf("IPv6 loopback unavailable in this environment: %v", err)
	}
	defer conn.Close()
}
