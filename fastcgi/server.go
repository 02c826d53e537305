package fastcgi

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/go-logr/logr"
)

// Options configures a Server, per spec.md §4.7. All fields are
// optional; zero values fall back to the documented defaults.
type Options struct {
	// MaxConns bounds the number of simultaneously accepted connections.
	// Additional connections are accepted and immediately closed rather
	// than queued, so a misbehaving front-end can never pile up
	// unbounded goroutines. Default 100.
	MaxConns int
	// MaxReqs is advisory: it is only reported back over GET_VALUES as
	// FCGI_MAX_REQS. Default 100.
	MaxReqs int
	// Logger receives structured diagnostic events. Defaults to a no-op
	// logger if unset.
	Logger logr.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxConns <= 0 {
		o.MaxConns = 100
	}
	if o.MaxReqs <= 0 {
		o.MaxReqs = 100
	}
	return o
}

// Server is the Server Core of spec.md §4.7: it owns the listening
// socket and the set of live connections, spawning a Connection Handler
// per accepted connection and enforcing MaxConns.
type Server struct {
	opts Options

	mu       sync.Mutex
	listener net.Listener
	conns    map[*Conn]struct{}
	wg       sync.WaitGroup
	lastSeq  uint64
}

// nextSeq returns the next connection sequence number, starting at 1.
// It exists instead of a bare counter because s.mu must already be held
// by every caller (Serve holds it while checking MaxConns), so folding
// the increment in here keeps that invariant in one place.
func (s *Server) nextSeq() uint64 {
	s.lastSeq++
	return s.lastSeq
}

// New returns a Server with the given options.
func New(opts Options) *Server {
	return &Server{
		opts:  opts.withDefaults(),
		conns: map[*Conn]struct{}{},
	}
}

func (s *Server) logger() logr.Logger {
	return s.opts.Logger
}

// Listen binds network ("tcp" or "unix") at address and starts serving
// handler for every accepted connection, blocking until the listener is
// closed (by Shutdown or by an Accept error), per spec.md §6's "either a
// TCP port... or a filesystem path for a Unix domain socket... both are
// equivalent to upstream callers".
func (s *Server) Listen(network, address string, handler Handler) error {
	ln, err := net.Listen(network, address)
	if err != nil {
		return fmt.Errorf("fastcgi: listen %s %s: %w", network, address, err)
	}
	return s.Serve(ln, handler)
}

// Serve accepts connections from ln until it is closed, enforcing
// MaxConns and spawning a Connection Handler goroutine per connection.
func (s *Server) Serve(ln net.Listener, handler Handler) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger().Info("listening", "addr", ln.Addr().String())

	for {
		nc, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.listener == nil
			s.mu.Unlock()
			if closed {
				s.wg.Wait()
				return nil
			}
			return fmt.Errorf("fastcgi: accept: %w", err)
		}

		s.mu.Lock()
		over := len(s.conns) >= s.opts.MaxConns
		var seq uint64
		if !over {
			seq = s.nextSeq()
		}
		s.mu.Unlock()
		if over {
			s.logger().Info("rejecting connection, MaxConns exceeded", "remote", nc.RemoteAddr().String())
			nc.Close()
			continue
		}

		conn := newConn(nc, s, handler, seq)
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.forget(conn)
			conn.serve(context.Background())
		}()
	}
}

func (s *Server) forget(c *Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

// Shutdown stops accepting new connections, closes every currently open
// connection, and waits for their Connection Handler goroutines to
// return (or for ctx to be done), per spec.md §4.7.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
		s.listener = nil
	}
	conns := make([]*Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.nc.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConnCount returns the number of currently open connections, useful for
// tests and diagnostics.
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}
