// ABOUTME: Broadcast TCP transport server: accepts connections, sends the preamble, fans out frames
// ABOUTME: Grounded on the original TcpServer: accept loop on its own goroutine, lazy eviction on write failure
package transport

import (
	"log"
	"net"
	"sync"
	"sync/atomic"

	"github.com/yassine-safraoui/sonos-challenge/pkg/frame"
)

// Server accepts TCP connections, sends each one the current preamble, and
// fans out broadcast frames to every live connection. A write failure to a
// connection evicts it silently; the broadcast continues to the others.
type Server struct {
	preamble *Preamble

	mu    sync.Mutex
	conns map[net.Conn]struct{}

	listener net.Listener
	stopping atomic.Bool
	wg       sync.WaitGroup
}

// NewServer creates a Server that will, once Start is called, bind addr and
// send preamble.Snapshot() to every newly accepted connection.
func NewServer(preamble *Preamble) *Server {
	return &Server{
		preamble: preamble,
		conns:    make(map[net.Conn]struct{}),
	}
}

// Start binds addr and spawns the acceptor goroutine.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.stopping.Load() {
				return
			}
			log.Printf("transport: accept error: %v", err)
			continue
		}
		s.admit(conn)
	}
}

// admit sends the current preamble to conn and, only on success, registers
// it in the connection set. A write failure drops the connection without
// ever exposing it to broadcast.
func (s *Server) admit(conn net.Conn) {
	preamble := s.preamble.Snapshot()

	if err := frame.Encode(conn, preamble); err != nil {
		log.Printf("transport: failed to send preamble to %s: %v", conn.RemoteAddr(), err)
		conn.Close()
		return
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

// UpdatePreamble atomically replaces the preamble storage.
func (s *Server) UpdatePreamble(data []byte) {
	s.preamble.Set(data)
}

// Broadcast frames messageBytes once and writes it to every live connection,
// evicting and closing any that fail. The frame is built outside the
// connection-set lock; the lock is held for the duration of the fan-out
// write, which is the dominant contention point against the acceptor.
func (s *Server) Broadcast(messageBytes []byte) {
	framed := frame.AppendFrame(make([]byte, 0, 4+len(messageBytes)), messageBytes)

	s.mu.Lock()
	defer s.mu.Unlock()

	for conn := range s.conns {
		if _, err := conn.Write(framed); err != nil {
			delete(s.conns, conn)
			conn.Close()
		}
	}
}

// ListenerAddr returns the address Start bound to, for tests that need to
// discover an ephemeral port.
func (s *Server) ListenerAddr() string {
	return s.listener.Addr().String()
}

// ClientCount returns the current cardinality of the connection set.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Stop signals the acceptor to exit and closes the listener. Broadcast
// remains safe to call afterward; it will simply observe a shrinking set as
// clients disconnect.
func (s *Server) Stop() {
	s.stopping.Store(true)
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
}
