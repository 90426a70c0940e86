package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/sagarc03/hearth"
	"github.com/sagarc03/hearth/filesystem"
	"github.com/sagarc03/hearth/metrics"
)

const (
	// DefaultIdleTimeout bounds the wait for the next request on a connection.
	DefaultIdleTimeout = 500 * time.Millisecond
	// DefaultReadBufferSize is the size of the single read a request must fit in.
	DefaultReadBufferSize = 8 * 1024
	// DefaultStreamThreshold is the largest file served from a memory buffer.
	DefaultStreamThreshold = 1_000_000
	// DefaultChunkSize is the copy buffer used when sendfile is unavailable.
	DefaultChunkSize = 64 * 1024
)

// FileStore resolves and opens static resources.
type FileStore interface {
	Resolve(reqPath string) (filesystem.Resource, error)
	Open(res filesystem.Resource) (*os.File, error)
	ReadAll(res filesystem.Resource) ([]byte, error)
}

// Config holds connection and transfer settings for a Server.
type Config struct {
	Addr            string
	IdleTimeout     time.Duration
	ReadBufferSize  int
	MaxConnections  int64
	StreamThreshold int64
	ChunkSize       int
	GzipLevel       int
}

// WithDefaults returns a copy of c with zero values replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = DefaultReadBufferSize
	}
	if c.StreamThreshold <= 0 {
		c.StreamThreshold = DefaultStreamThreshold
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.GzipLevel == 0 {
		c.GzipLevel = hearth.DefaultGzipLevel
	}
	return c
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for connection events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(s *Server) {
		s.metrics = recorder
	}
}

// Server accepts TCP connections and runs one session per connection.
type Server struct {
	cfg     Config
	routes  *hearth.RouteTable
	files   FileStore
	logger  *slog.Logger
	metrics *metrics.Recorder
	sem     *semaphore.Weighted

	sessions sync.WaitGroup

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a Server. routes is read but never modified; files may be
// nil when no static root is served, in which case unrouted paths get 404.
func NewServer(cfg *Config, routes *hearth.RouteTable, files FileStore, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg.WithDefaults(),
		routes: routes,
		files:  files,
		logger: slog.Default(),
	}
	if s.routes == nil {
		s.routes = hearth.NewRouteTable()
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.metrics == nil {
		s.metrics = metrics.Noop()
	}
	if s.cfg.MaxConnections > 0 {
		s.sem = semaphore.NewWeighted(s.cfg.MaxConnections)
	}

	return s
}

// ListenAndServe listens on the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Addr returns the address of the active listener, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections on ln until ctx is cancelled, spawning one
// goroutine per connection. It closes ln and returns nil on cancellation.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()

	s.logger.Info("listening", "addr", ln.Addr().String())

	var backoff time.Duration
	for {
		if s.sem != nil {
			if err := s.sem.Acquire(ctx, 1); err != nil {
				return nil
			}
		}

		conn, err := ln.Accept()
		if err != nil {
			s.release()
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = nextBackoff(backoff)
				s.logger.Warn("accept failed, retrying", "err", err, "backoff", backoff)
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(backoff):
				}
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}
		backoff = 0

		s.sessions.Add(1)
		go func() {
			defer s.sessions.Done()
			defer s.release()
			s.ServeConn(conn)
		}()
	}
}

// ServeConn runs a session on conn until the peer closes it, the idle
// timeout fires, or the keep-alive decision ends it. conn is always closed.
func (s *Server) ServeConn(conn net.Conn) {
	newSession(s, conn).run()
}

// Shutdown waits for in-flight sessions to end or ctx to expire. Sessions are
// not interrupted; idle ones end on their own timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) release() {
	if s.sem != nil {
		s.sem.Release(1)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	return min(2*d, time.Second)
}
