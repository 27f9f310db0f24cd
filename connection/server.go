package connection

import (
	"log"
	"net"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tes-go/tes/messages"
)

// ConnectionMonitor accepts incoming peers on a listener and hands off
// newly accepted connections for the Server to commit. It runs either
// synchronously (the caller pumps Poll each frame) or asynchronously
// (Start spawns an accept-loop goroutine). An accepted net.Conn is
// "pending" until the next CommitConnections pass promotes it.
type ConnectionMonitor struct {
	listener net.Listener

	mu      sync.Mutex
	pending []*Connection
	notify  chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewConnectionMonitor wraps an already-listening net.Listener.
func NewConnectionMonitor(listener net.Listener) *ConnectionMonitor {
	return &ConnectionMonitor{
		listener: listener,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start launches a background accept loop. Accepted peers are staged as
// pending until CommitConnections is called.
func (m *ConnectionMonitor) Start() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			conn, err := m.listener.Accept()
			if err != nil {
				select {
				case <-m.done:
					return
				default:
				}
				log.Println("connection monitor: accept failed", err)
				return
			}
			m.stage(conn)
		}
	}()
}

// Poll performs one synchronous accept attempt, for callers that pump
// the monitor themselves instead of running Start's background
// goroutine. It calls the listener's Accept directly, so it blocks until
// a peer connects or the listener fails.
func (m *ConnectionMonitor) Poll() error {
	conn, err := m.listener.Accept()
	if err != nil {
		return eris.Wrap(err, "connection monitor: accept")
	}
	m.stage(conn)
	return nil
}

func (m *ConnectionMonitor) stage(conn net.Conn) {
	addr, port := addrPort(conn)
	c := New(conn, addr, port)
	log.Println("connection monitor: accepted", c.Address(), c.ID())
	m.mu.Lock()
	m.pending = append(m.pending, c)
	m.mu.Unlock()
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// WaitForConnection blocks until a pending connection is staged, the
// monitor stops, or timeout elapses. Returns true when at least one
// connection is waiting to be committed.
func (m *ConnectionMonitor) WaitForConnection(timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		m.mu.Lock()
		waiting := len(m.pending) > 0
		m.mu.Unlock()
		if waiting {
			return true
		}
		select {
		case <-m.notify:
		case <-m.done:
			return false
		case <-deadline.C:
			return false
		}
	}
}

// CommitConnections drains every pending connection accepted since the
// last call and returns them as newly established.
func (m *ConnectionMonitor) CommitConnections() []*Connection {
	m.mu.Lock()
	defer m.mu.Unlock()
	committed := m.pending
	m.pending = nil
	return committed
}

// Stop signals the background accept loop (if started) to exit and
// closes the listener.
func (m *ConnectionMonitor) Stop() error {
	close(m.done)
	err := m.listener.Close()
	m.wg.Wait()
	return err
}

// EstablishedCallback is invoked once per newly committed connection,
// after it has received ServerInfo.
type EstablishedCallback func(*Connection)

// Server owns N Connections plus a ConnectionMonitor, and advances every
// connection's frame state together.
type Server struct {
	mu          sync.Mutex
	info        messages.ServerInfo
	flags       ServerFlag
	connections []*Connection
	monitor     *ConnectionMonitor
	onEstablish EstablishedCallback
}

// NewServer constructs a Server advertising info, optionally backed by a
// ConnectionMonitor (nil if connections are added directly via AddConnection,
// e.g. for a file-backed recording sink with no network listener).
func NewServer(info messages.ServerInfo, monitor *ConnectionMonitor) *Server {
	return &Server{info: info, monitor: monitor}
}

// SetFlags replaces the server behaviour flags applied to every current
// and future connection.
func (s *Server) SetFlags(flags ServerFlag) {
	s.mu.Lock()
	s.flags = flags
	conns := make([]*Connection, len(s.connections))
	copy(conns, s.connections)
	s.mu.Unlock()
	for _, c := range conns {
		c.SetServerFlags(flags)
	}
}

// OnEstablished registers a callback fired once per connection the next
// time MonitorConnections commits it.
func (s *Server) OnEstablished(cb EstablishedCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEstablish = cb
}

// AddConnection registers an already-constructed Connection directly,
// sends it ServerInfo, and fires the established callback. Used by
// callers with no ConnectionMonitor (file-backed recording).
func (s *Server) AddConnection(c *Connection) error {
	s.mu.Lock()
	flags := s.flags
	s.mu.Unlock()
	c.SetServerFlags(flags)
	if err := c.SendServerInfo(s.info); err != nil {
		return eris.Wrap(err, "server: sending server info")
	}
	s.mu.Lock()
	s.connections = append(s.connections, c)
	cb := s.onEstablish
	s.mu.Unlock()
	if cb != nil {
		cb(c)
	}
	return nil
}

// MonitorConnections commits any connections accepted by the monitor
// since the last call, sends each ServerInfo, registers them, and fires
// the established callback.
func (s *Server) MonitorConnections() error {
	if s.monitor == nil {
		return nil
	}
	for _, c := range s.monitor.CommitConnections() {
		if err := s.AddConnection(c); err != nil {
			log.Println("server: failed to establish connection", c.Address(), err)
			_ = c.Close()
			continue
		}
	}
	return nil
}

// Connections returns a snapshot of every registered connection.
func (s *Server) Connections() []*Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Connection, len(s.connections))
	copy(out, s.connections)
	return out
}

// UpdateFrame advances every connection's frame counter together,
// dropping connections whose sink has failed.
func (s *Server) UpdateFrame(dt float32, flush bool) error {
	s.mu.Lock()
	conns := make([]*Connection, len(s.connections))
	copy(conns, s.connections)
	s.mu.Unlock()

	var firstErr error
	var live []*Connection
	for _, c := range conns {
		if !c.IsConnected() {
			_ = c.Close()
			continue
		}
		if err := c.UpdateFrame(dt, flush); err != nil {
			log.Println("server: update frame failed for", c.Address(), err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		live = append(live, c)
	}

	s.mu.Lock()
	s.connections = live
	s.mu.Unlock()
	return firstErr
}

// UpdateTransfers pumps every connection's resource registry.
func (s *Server) UpdateTransfers(byteLimit int) error {
	for _, c := range s.Connections() {
		if err := c.UpdateTransfers(byteLimit); err != nil {
			return eris.Wrapf(err, "server: updating transfers for %s", c.Address())
		}
	}
	return nil
}

// Close closes every connection and stops the monitor, if any.
func (s *Server) Close() error {
	var firstErr error
	for _, c := range s.Connections() {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.monitor != nil {
		if err := s.monitor.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
