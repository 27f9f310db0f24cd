package connection

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/packet"
)

func TestServerMonitorConnectionsCommitsAndSendsServerInfo(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	monitor := NewConnectionMonitor(ln)
	monitor.Start()

	server := NewServer(messages.DefaultServerInfo(), monitor)

	established := make(chan *Connection, 1)
	server.OnEstablished(func(c *Connection) { established <- c })

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer clientConn.Close()

	require.Eventually(t, func() bool {
		return server.MonitorConnections() == nil && len(server.Connections()) == 1
	}, time.Second, 5*time.Millisecond)

	select {
	case <-established:
	case <-time.After(time.Second):
		t.Fatal("established callback did not fire")
	}

	buf := make([]byte, packet.HeaderSize+64)
	clientConn.SetReadDeadline(time.Now().Add(time.Second))
	n, err := clientConn.Read(buf)
	require.NoError(t, err)
	require.Greater(t, n, 0)

	r, err := packet.NewReader(buf[:n])
	require.NoError(t, err)
	require.Equal(t, uint16(messages.RIDServerInfo), r.RoutingID())

	require.NoError(t, server.Close())
}

func TestServerUpdateFrameDropsDisconnectedConnections(t *testing.T) {
	w := &bufWriteCloser{}
	c := New(w, "127.0.0.1", 1)
	server := NewServer(messages.DefaultServerInfo(), nil)
	require.NoError(t, server.AddConnection(c))

	require.NoError(t, c.Close())
	require.NoError(t, server.UpdateFrame(0.016, true))
	require.Empty(t, server.Connections())
}

func TestWaitForConnectionObservesStagedPeer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	monitor := NewConnectionMonitor(ln)
	monitor.Start()
	defer monitor.Stop()

	require.False(t, monitor.WaitForConnection(10*time.Millisecond))

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer clientConn.Close()

	require.True(t, monitor.WaitForConnection(time.Second))
}
