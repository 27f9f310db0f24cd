// Package connection implements the outbound sink abstraction: a
// Connection wraps one network peer (or a file, for recording) with its
// own collated-packet staging, resource registry, category tree, and an
// MPSC send queue drained by a single sink goroutine.
package connection

import (
	"io"
	"log"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/tes-go/tes/category"
	"github.com/tes-go/tes/collate"
	"github.com/tes-go/tes/messages"
	"github.com/tes-go/tes/meshres"
	"github.com/tes-go/tes/packet"
	"github.com/tes-go/tes/resources"
)

// ServerFlag mirrors the flag bits a server advertises in ServerInfo
// that change how connections behave.
type ServerFlag uint32

const (
	// SFNakedFrameMessage forces FRAME control messages to be sent
	// uncollated and uncompressed, so a consumer can use them as a
	// byte-level synchronisation point.
	SFNakedFrameMessage ServerFlag = 1 << 0
)

// sendQueueDepth bounds the MPSC channel backing Send; producers block
// once it fills, so any producer may enqueue while the sink goroutine
// stays the sole dequeuer, without an unbounded queue.
const sendQueueDepth = 256

// Connection is one outbound sink: a collated-packet staging buffer, a
// per-connection resource registry and category tree, and a send queue
// drained by a background goroutine writing to an underlying
// io.WriteCloser (a net.Conn for a live peer, or a file for recording).
type Connection struct {
	id   string
	conn io.WriteCloser
	addr string
	port uint16

	serverInfo  messages.ServerInfo
	serverFlags ServerFlag
	frameNumber uint32

	mu       sync.Mutex
	active   bool
	closed   bool
	collator *collate.Writer

	resources resources.Registry
	categories category.Tree

	sendCh chan []byte
	wg     sync.WaitGroup
	sendErr atomic.Value // error
}

// New wraps conn (already connected) as an active Connection. addr/port
// are the peer's address, kept for Address/Port regardless of what the
// underlying io.WriteCloser exposes (a recording file has neither).
func New(conn io.WriteCloser, addr string, port uint16) *Connection {
	c := &Connection{
		id:       uuid.NewString(),
		conn:     conn,
		addr:     addr,
		port:     port,
		active:   true,
		collator: collate.NewWriter(collate.MaxPacketSize, true),
		sendCh:   make(chan []byte, sendQueueDepth),
	}
	c.wg.Add(1)
	go c.sinkLoop()
	return c
}

// ID returns a stable per-connection diagnostic id used in log lines.
func (c *Connection) ID() string { return c.id }

func (c *Connection) sinkLoop() {
	defer c.wg.Done()
	for buf := range c.sendCh {
		if _, err := c.conn.Write(buf); err != nil {
			c.sendErr.Store(err)
			log.Println("connection: write failed for", c.addr, err)
			return
		}
	}
}

// Close stops the sink goroutine and closes the underlying writer.
// Close is idempotent.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.active = false
	c.mu.Unlock()

	close(c.sendCh)
	c.wg.Wait()
	return c.conn.Close()
}

// SetActive toggles whether send-producing calls do anything.
func (c *Connection) SetActive(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = active
}

// Active reports the current active flag.
func (c *Connection) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// SetServerFlags replaces the server behaviour flags this connection
// honours (e.g. SFNakedFrameMessage).
func (c *Connection) SetServerFlags(flags ServerFlag) {
	c.mu.Lock()
	c.serverFlags = flags
	c.mu.Unlock()
}

// Address returns the peer address this connection was created with.
func (c *Connection) Address() string { return c.addr }

// Port returns the peer port this connection was created with.
func (c *Connection) Port() uint16 { return c.port }

// IsConnected reports whether the connection has not been closed and its
// sink goroutine has not observed a write error.
func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return false
	}
	return c.sendErr.Load() == nil
}

// err returns the last write error observed by the sink loop, if any.
func (c *Connection) err() error {
	if v := c.sendErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// SendPacket enqueues w's bytes, implementing resources.Sink and
// handler.Sink. w must already be finalised by the caller.
func (c *Connection) SendPacket(w *packet.Writer) error {
	_, err := c.Send(w.Bytes(), true)
	return err
}

// Send enqueues buf for delivery. While inactive this is a no-op
// returning byte count 0. allowCollation selects whether buf
// may be folded into the connection's staging CollatedPacket rather than
// sent immediately; collation is flushed by FlushCollated.
func (c *Connection) Send(buf []byte, allowCollation bool) (int, error) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return 0, nil
	}
	if !allowCollation {
		c.mu.Unlock()
		return c.enqueue(buf)
	}
	if _, err := c.collator.Add(buf); err != nil {
		c.mu.Unlock()
		return 0, eris.Wrap(err, "connection: staging collated packet")
	}
	c.mu.Unlock()
	return len(buf), nil
}

func (c *Connection) enqueue(buf []byte) (int, error) {
	if err := c.err(); err != nil {
		return 0, eris.Wrap(err, "connection: sink already failed")
	}
	cp := make([]byte, len(buf))
	copy(cp, buf)
	c.sendCh <- cp
	return len(buf), nil
}

// FlushCollated finalises and sends the connection's staged collated
// packet, if it holds anything, and resets it for the next frame.
func (c *Connection) FlushCollated() error {
	c.mu.Lock()
	if c.collator.Count() == 0 {
		c.mu.Unlock()
		return nil
	}
	out, err := c.collator.Finalise()
	c.collator.Reset()
	c.mu.Unlock()
	if err != nil {
		return eris.Wrap(err, "connection: finalising collated packet")
	}
	if err := out.Finalise(); err != nil {
		return eris.Wrap(err, "connection: finalising collated packet writer")
	}
	_, err = c.enqueue(out.Bytes())
	return err
}

// SendServerInfo sends the server's current configuration, uncollated,
// as every new connection must observe it before anything else.
func (c *Connection) SendServerInfo(info messages.ServerInfo) error {
	c.mu.Lock()
	c.serverInfo = info
	c.mu.Unlock()

	w := packet.NewWriter(uint16(messages.RIDServerInfo), 0, 64)
	if err := info.Write(w); err != nil {
		return eris.Wrap(err, "connection: encoding server info")
	}
	if err := w.Finalise(); err != nil {
		return eris.Wrap(err, "connection: finalising server info packet")
	}
	_, err := c.Send(w.Bytes(), false)
	return err
}

// UpdateFrame advances the frame counter by one and emits the FRAME
// control message. If the server's NAKED_FRAME_MESSAGE flag is
// set the message bypasses collation so a consumer can use it as a
// byte-level sync point; flush=false carries FRAME_PERSIST so transient
// shapes survive the boundary.
func (c *Connection) UpdateFrame(dt float32, flush bool) error {
	c.mu.Lock()
	c.frameNumber++
	naked := c.serverFlags&SFNakedFrameMessage != 0
	c.mu.Unlock()

	ctrl := messages.Control{Value32: uint32(dt * 1000)}
	if !flush {
		ctrl.Flags = uint32(messages.CFFramePersist)
	}

	w := packet.NewWriter(uint16(messages.RIDControl), uint16(messages.CIDFrame), 32)
	if err := ctrl.Write(w); err != nil {
		return eris.Wrap(err, "connection: encoding frame control")
	}
	if err := w.Finalise(); err != nil {
		return eris.Wrap(err, "connection: finalising frame control packet")
	}
	_, err := c.Send(w.Bytes(), !naked)
	if err != nil {
		return err
	}
	if naked {
		return nil
	}
	return c.FlushCollated()
}

// UpdateTransfers pumps this connection's resource registry, sending at
// most byteLimit bytes of mesh resource transfer traffic (0 = unbounded).
func (c *Connection) UpdateTransfers(byteLimit int) error {
	return c.resources.UpdateTransfers(c, byteLimit)
}

// ReferenceResource increments res's refcount on this connection's
// registry, enqueuing it for transfer on first reference.
func (c *Connection) ReferenceResource(res *meshres.Resource) int {
	return c.resources.Reference(res)
}

// ReleaseResource decrements id's refcount, sending a DESTROY message
// once it reaches zero.
func (c *Connection) ReleaseResource(id uint32) error {
	destroyNeeded, err := c.resources.Release(id)
	if err != nil {
		return eris.Wrap(err, "connection: releasing resource")
	}
	if !destroyNeeded {
		return nil
	}
	w := packet.NewWriter(uint16(messages.RIDMesh), uint16(meshres.MIDDestroy), 8)
	if err := meshres.WriteDestroy(w, id); err != nil {
		return eris.Wrap(err, "connection: encoding mesh destroy")
	}
	if err := w.Finalise(); err != nil {
		return eris.Wrap(err, "connection: finalising mesh destroy packet")
	}
	_, err = c.Send(w.Bytes(), true)
	return err
}

// Categories returns this connection's category tree, for handlers that
// need to serialise it to a newly connected peer.
func (c *Connection) Categories() *category.Tree { return &c.categories }

// addrPort is a convenience extractor for net.Conn-backed connections,
// used by Server when it accepts a new peer.
func addrPort(conn net.Conn) (string, uint16) {
	addr := conn.RemoteAddr()
	if addr == nil {
		return "", 0
	}
	host, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String(), 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0
	}
	return host, uint16(port)
}
