package redisserver

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/pedis-go/internal/protocol/resp"
	"github.com/yndnr/pedis-go/internal/storage"
	"github.com/yndnr/pedis-go/internal/telemetry/logger"
	"github.com/yndnr/pedis-go/internal/telemetry/metric"
)

// Config holds the Redis server configuration.
type Config struct {
	// Addr is the TCP listen address.
	Addr string
	// ReadTimeout is the timeout for reading a command once its first
	// byte has arrived (default: 30s). Helps prevent slowloris attacks.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing a response (default: 30s).
	WriteTimeout time.Duration
	// IdleTimeout is the timeout for idle connections (default: 5m).
	IdleTimeout time.Duration
	// RateLimit is the maximum number of commands per second per
	// connection. Set to 0 to disable rate limiting.
	RateLimit int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:         "127.0.0.1:6379",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  5 * time.Minute,
		RateLimit:    0,
	}
}

// Server represents the Redis protocol server.
type Server struct {
	cfg     *Config
	handler *CommandHandler
	logger  *slog.Logger
	metrics *metric.Registry

	ln      net.Listener
	running atomic.Bool
	wg      sync.WaitGroup

	connMu sync.Mutex
	conns  map[*Conn]struct{}
}

// Conn represents a single Redis client connection.
type Conn struct {
	id      string
	netConn net.Conn
	br      *bufio.Reader
	bw      *bufio.Writer
	limiter *rate.Limiter

	closed atomic.Bool
}

func newConn(c net.Conn, rateLimit int) *Conn {
	conn := &Conn{
		id:      ulid.Make().String(),
		netConn: c,
		br:      bufio.NewReader(c),
		bw:      bufio.NewWriter(c),
	}
	if rateLimit > 0 {
		conn.limiter = rate.NewLimiter(rate.Limit(rateLimit), rateLimit)
	}
	return conn
}

// ID returns the connection's ULID.
func (c *Conn) ID() string {
	return c.id
}

// Close closes the connection. It is safe to call more than once.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.netConn.Close()
}

// RemoteAddr returns the client address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.netConn.RemoteAddr()
}

// New creates a new Redis protocol server over store.
func New(cfg *Config, store storage.Store, reg *metric.Registry, logger *slog.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		cfg:     cfg,
		handler: NewCommandHandler(store, reg, logger),
		logger:  logger,
		metrics: reg,
		conns:   make(map[*Conn]struct{}),
	}
}

// Start binds the listener and serves connections in the background.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.running.Store(true)

	s.logger.Info("redis server listening", "address", ln.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.acceptLoop(ctx, ln); err != nil && s.running.Load() {
			s.logger.Error("redis server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops accepting, closes open connections and waits for their
// goroutines to finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	var firstErr error

	// Close listener to break accept loop.
	if s.ln != nil {
		if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			firstErr = err
		}
	}

	s.connMu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.connMu.Unlock()

	// Wait for goroutines to finish
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return firstErr
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			if !s.running.Load() {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		conn := newConn(c, s.cfg.RateLimit)
		if !s.track(conn, true) {
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.track(conn, false)
			s.serveConn(ctx, conn)
		}()
	}
}

// track adds or removes c from the open set. A connection added after
// Shutdown has begun is closed at once and track reports false.
func (s *Server) track(c *Conn, add bool) bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if !add {
		delete(s.conns, c)
		return true
	}
	if !s.running.Load() {
		_ = c.Close()
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) serveConn(ctx context.Context, c *Conn) {
	defer c.Close()

	s.metrics.ConnOpened()
	defer s.metrics.ConnClosed()

	ctx = logger.WithConnID(ctx, c.id)
	log := s.logger.With("remote", c.RemoteAddr().String())
	log.DebugContext(ctx, "connection accepted")
	defer log.DebugContext(ctx, "connection closed")

	readTimeout := s.cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout := s.cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 30 * time.Second
	}
	idleTimeout := s.cfg.IdleTimeout
	if idleTimeout == 0 {
		idleTimeout = 5 * time.Minute
	}

	flush := func() error {
		if err := c.netConn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return err
		}
		return c.bw.Flush()
	}

	for {
		// First byte: allow idle timeout (connection can stay idle between commands).
		if err := c.netConn.SetReadDeadline(time.Now().Add(idleTimeout)); err != nil {
			return
		}
		if _, err := c.br.Peek(1); err != nil {
			if !errors.Is(err, io.EOF) && !c.closed.Load() {
				log.DebugContext(ctx, "connection read error", "error", err)
			}
			return
		}

		// After first byte: tighten to per-command read timeout (slowloris protection).
		if err := c.netConn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return
		}

		cmd, err := resp.ReadCommand(c.br)
		if err != nil {
			switch {
			case errors.Is(err, resp.ErrEmptyCommand):
				// The frame was consumed whole; the stream is still in sync.
				_ = resp.WriteError(c.bw, "ERR no command")
				if flush() != nil {
					return
				}
				continue
			case errors.Is(err, resp.ErrLimitExceeded):
				s.metrics.IncProtocolErrors()
				log.WarnContext(ctx, "protocol limit exceeded", "error", err)
				_ = resp.WriteError(c.bw, "ERR protocol limit exceeded")
				_ = flush()
				return // Close connection on limit violation
			case errors.Is(err, resp.ErrDecode):
				s.metrics.IncProtocolErrors()
				log.DebugContext(ctx, "protocol error", "error", err)
				_ = resp.WriteError(c.bw, "ERR protocol error: "+err.Error())
				_ = flush()
				return
			default:
				var netErr net.Error
				if errors.As(err, &netErr) && netErr.Timeout() {
					log.DebugContext(ctx, "connection timed out")
				}
				return
			}
		}
		if cmd == nil {
			continue
		}

		if c.limiter != nil && !c.limiter.Allow() {
			s.metrics.IncRateLimited()
			_ = resp.WriteError(c.bw, "ERR rate limit exceeded")
		} else {
			s.handler.Handle(ctx, c, cmd)
		}

		if c.closed.Load() {
			return
		}
		if err := flush(); err != nil {
			return
		}
	}
}
