// Package wsconn adapts a *websocket.Conn into the plain byte-oriented,
// ordered channel the rest of this module expects (packetstream.Reader
// needs only io.Reader, Connection needs only io.WriteCloser), so a
// browser-based viewer can carry the collated-packet stream over
// WebSocket instead of raw TCP.
package wsconn

import (
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rotisserie/eris"
)

// Conn adapts a *websocket.Conn to net.Conn. Every Write is sent as one
// binary WebSocket message; Read reassembles the byte stream by pulling
// further binary messages as the caller's buffer drains, so callers that
// expect a continuous byte stream (packetstream.Reader in particular)
// see one regardless of how the peer's messages are chunked.
type Conn struct {
	ws *websocket.Conn

	writeMu sync.Mutex

	readMu  sync.Mutex
	pending []byte
}

// New wraps an already-established *websocket.Conn.
func New(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Read implements io.Reader. It returns bytes left over from the current
// binary WebSocket message and reads a new message only when none remain,
// so it may return fewer than len(p) bytes.
func (c *Conn) Read(p []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if len(c.pending) == 0 {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			return 0, eris.Wrap(err, "wsconn: reading message")
		}
		if msgType != websocket.BinaryMessage {
			return 0, eris.New("wsconn: unexpected non-binary websocket message")
		}
		c.pending = data
	}

	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// Write implements io.Writer, sending buf as one binary WebSocket
// message. WriteMessage is not safe for concurrent use on the underlying
// connection, so Write serialises with writeMu.
func (c *Conn) Write(buf []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteMessage(websocket.BinaryMessage, buf); err != nil {
		return 0, eris.Wrap(err, "wsconn: writing message")
	}
	return len(buf), nil
}

// Close closes the underlying WebSocket connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}

// LocalAddr returns the underlying connection's local address.
func (c *Conn) LocalAddr() net.Addr { return c.ws.LocalAddr() }

// RemoteAddr returns the underlying connection's remote address.
func (c *Conn) RemoteAddr() net.Addr { return c.ws.RemoteAddr() }

// SetDeadline sets both read and write deadlines.
func (c *Conn) SetDeadline(t time.Time) error {
	if err := c.ws.SetReadDeadline(t); err != nil {
		return err
	}
	return c.ws.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline.
func (c *Conn) SetReadDeadline(t time.Time) error { return c.ws.SetReadDeadline(t) }

// SetWriteDeadline sets the write deadline.
func (c *Conn) SetWriteDeadline(t time.Time) error { return c.ws.SetWriteDeadline(t) }
