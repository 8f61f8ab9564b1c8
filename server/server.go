package server

import (
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Handler serves a single accepted connection. The server closes conn after ServeConn returns.
type Handler interface {
	ServeConn(conn net.Conn)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(conn net.Conn)

// ServeConn calls f(conn)
func (f HandlerFunc) ServeConn(conn net.Conn) {
	f(conn)
}

// Server accepts TCP connections and hands each one to a Handler on its own goroutine
type Server struct {
	handler  Handler
	listener net.Listener
	address  string
	mu       sync.Mutex
	running  bool
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
	logger   zerolog.Logger
}

// New creates a new server instance
func New(handler Handler, address string) *Server {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("component", "server").Logger()
	return NewWithLogger(handler, address, logger)
}

// NewWithLogger creates a new server instance with a custom logger
func NewWithLogger(handler Handler, address string, logger zerolog.Logger) *Server {
	return &Server{
		handler: handler,
		address: address,
		conns:   make(map[net.Conn]struct{}),
		logger:  logger.With().Str("address", address).Logger(),
	}
}

// Start starts the TCP server and blocks until Stop is called
func (s *Server) Start() error {
	s.logger.Info().Msg("starting server (blocking mode)")

	if err := s.listen(); err != nil {
		return err
	}

	s.wg.Add(1)
	s.acceptConnections()

	return nil
}

// StartAsync starts the TCP server in a goroutine (non-blocking)
func (s *Server) StartAsync() error {
	s.logger.Info().Msg("starting server (async mode)")

	if err := s.listen(); err != nil {
		return err
	}

	s.wg.Add(1)
	go s.acceptConnections()
	s.logger.Info().Msg("server started in background, ready to accept connections")

	return nil
}

func (s *Server) listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Error().Msg("server already running")
		return fmt.Errorf("server already running")
	}

	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to start server")
		return fmt.Errorf("failed to start server: %w", err)
	}

	s.listener = listener
	s.running = true
	s.logger.Info().Str("listen", listener.Addr().String()).Msg("server listening")

	return nil
}

// Backoff bounds after a failed Accept
const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// acceptConnections handles incoming client connections
func (s *Server) acceptConnections() {
	defer s.wg.Done()

	var delay time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.IsRunning() {
				// Server is shutting down
				s.logger.Debug().Msg("server shutting down, stopping accept loop")
				return
			}
			delay = nextAcceptDelay(delay)
			s.logger.Error().Err(err).Dur("retry_in", delay).Msg("error accepting connection")
			time.Sleep(delay)
			continue
		}
		delay = 0

		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		s.logger.Debug().Stringer("client", conn.RemoteAddr()).Msg("client connected")
		go s.handleConnection(conn)
	}
}

func nextAcceptDelay(delay time.Duration) time.Duration {
	if delay == 0 {
		return minAcceptDelay
	}
	return min(delay*2, maxAcceptDelay)
}

// handleConnection runs the handler for a single client connection
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()

		conn.Close()
		s.logger.Debug().Stringer("client", conn.RemoteAddr()).Msg("client disconnected")
	}()

	s.handler.ServeConn(conn)
}

// Stop closes the listener and every open connection, then waits for handlers to return
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.logger.Debug().Msg("stop called but server is not running")
		return nil
	}

	s.logger.Info().Msg("stopping server")
	s.running = false
	listener := s.listener
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	var err error
	if listener != nil {
		err = listener.Close()
	}

	s.wg.Wait()
	s.logger.Info().Msg("server stopped")

	if err != nil {
		return fmt.Errorf("failed to close listener: %w", err)
	}
	return nil
}

// IsRunning returns whether the server is running
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Address returns the configured server address
func (s *Server) Address() string {
	return s.address
}

// Addr returns the bound listener address, or nil when the server is not running
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	return s.listener.Addr()
}
