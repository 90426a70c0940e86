package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/sagarc03/hearth"
)

type sessionState int

const (
	stateAwaitingRequest sessionState = iota
	stateDispatching
	stateResponding
	stateClosed
)

func (st sessionState) String() string {
	switch st {
	case stateAwaitingRequest:
		return "awaiting_request"
	case stateDispatching:
		return "dispatching"
	case stateResponding:
		return "responding"
	case stateClosed:
		return "closed"
	default:
		return fmt.Sprintf("sessionState(%d)", int(st))
	}
}

// session owns one accepted connection for its whole lifetime.
type session struct {
	srv    *Server
	conn   net.Conn
	logger *slog.Logger
	buf    []byte

	req      *hearth.Request
	resp     *hearth.Response
	keepOpen bool
	served   int
}

func newSession(srv *Server, conn net.Conn) *session {
	peer := conn.RemoteAddr().String()
	return &session{
		srv:    srv,
		conn:   conn,
		logger: srv.logger.With("conn_id", uuid.NewString(), "peer", peer),
		buf:    make([]byte, srv.cfg.ReadBufferSize),
	}
}

func (s *session) run() {
	ctx := context.Background()
	s.srv.metrics.ConnectionOpened(ctx)
	s.logger.Debug("accepted")

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session panicked", "panic", r, "stack", string(debug.Stack()))
		}
		if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Debug("close failed", "err", err)
		}
		s.srv.metrics.ConnectionClosed(ctx)
		s.logger.Debug("closed", "requests", s.served)
	}()

	state := stateAwaitingRequest
	for state != stateClosed {
		switch state {
		case stateAwaitingRequest:
			state = s.awaitRequest(ctx)
		case stateDispatching:
			state = s.dispatch()
		case stateResponding:
			state = s.respond(ctx)
		}
	}
}

// awaitRequest performs one bounded read and parses it.
func (s *session) awaitRequest(ctx context.Context) sessionState {
	s.req, s.resp = nil, nil

	if err := s.conn.SetReadDeadline(time.Now().Add(s.srv.cfg.IdleTimeout)); err != nil {
		s.logger.Debug("set read deadline failed", "err", err)
		return stateClosed
	}

	n, err := s.conn.Read(s.buf)
	if n == 0 {
		var ne net.Error
		switch {
		case err == nil || errors.Is(err, io.EOF):
			s.logger.Debug("peer closed connection")
		case errors.As(err, &ne) && ne.Timeout():
			s.logger.Warn("timed out", "idle_timeout", s.srv.cfg.IdleTimeout)
			s.srv.metrics.TimedOut(ctx)
			s.sendTimeout()
		default:
			s.logger.Debug("read failed", "err", err)
		}
		return stateClosed
	}

	req, err := hearth.ParseRequest(s.buf[:n], s.srv.routes)
	if err != nil {
		s.logger.Warn("unusable request", "err", err)
		return stateClosed
	}
	req.RemoteAddr = s.conn.RemoteAddr().String()
	s.req = req

	s.logger.Debug("parsed", "method", req.Method, "path", req.Path, "query", req.RawQuery)
	return stateDispatching
}

// sendTimeout writes a best-effort 408 before the connection is closed.
func (s *session) sendTimeout() {
	resp := hearth.Error(http.StatusRequestTimeout)
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.srv.cfg.IdleTimeout))
	if _, err := writeResponse(s.conn, resp, false, false, s.srv.cfg.ChunkSize); err != nil {
		s.logger.Debug("timeout response not delivered", "err", err)
	}
}

// dispatch resolves the response for the current request. Panics and
// internal errors become a 500 that closes the connection.
func (s *session) dispatch() (next sessionState) {
	s.keepOpen = wantsKeepAlive(s.req)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("handler panicked", "method", s.req.Method, "path", s.req.Path, "panic", r)
			s.internalError()
			next = stateResponding
		}
	}()

	var (
		resp *hearth.Response
		err  error
		kind string
	)
	switch {
	case s.req.Handler != nil:
		kind = "handler"
		resp = s.req.Handler.ServeRequest(s.req)
		if resp == nil {
			err = fmt.Errorf("%w: handler for %s returned no response", hearth.ErrInternal, s.req.Path)
		}
	case s.req.Method == http.MethodGet || s.req.Method == http.MethodHead:
		kind = "static"
		resp, err = s.srv.serveStatic(s.req)
	default:
		kind = "none"
		resp = hearth.Error(http.StatusNotFound)
	}

	if err != nil {
		s.logger.Error("request failed", "method", s.req.Method, "path", s.req.Path, "err", err)
		s.internalError()
		return stateResponding
	}

	s.resp = resp
	s.logger.Debug("dispatched", "method", s.req.Method, "path", s.req.Path, "route", kind)
	return stateResponding
}

func (s *session) internalError() {
	if s.resp != nil {
		_ = s.resp.Close()
	}
	s.resp = hearth.Error(http.StatusInternalServerError)
	s.keepOpen = false
}

// respond writes the response with no deadline so that long transfers are
// not cut short by the idle timeout, which is re-armed at the next read.
func (s *session) respond(ctx context.Context) sessionState {
	defer func() { _ = s.resp.Close() }()

	if err := s.conn.SetDeadline(time.Time{}); err != nil {
		s.logger.Debug("clear deadline failed", "err", err)
		return stateClosed
	}

	start := time.Now()
	n, err := writeResponse(s.conn, s.resp, s.keepOpen, s.req.IsHead(), s.srv.cfg.ChunkSize)
	if err != nil {
		s.logger.Warn("response write failed", "method", s.req.Method, "path", s.req.Path,
			"status", s.resp.Status, "bytes", n, "err", err)
		return stateClosed
	}

	s.served++
	s.srv.metrics.RequestServed(ctx, s.req.Method, s.resp.Status, n)
	s.logger.Info("responded",
		"method", s.req.Method,
		"path", s.req.Path,
		"status", s.resp.Status,
		"bytes", n,
		"streamed", s.resp.IsStreamed(),
		"keep_alive", s.keepOpen,
		"duration", time.Since(start),
	)

	if !s.keepOpen {
		return stateClosed
	}
	return stateAwaitingRequest
}

// wantsKeepAlive keeps the connection open only when the Connection header
// is exactly "keep-alive". Any other value, including a different case,
// closes it.
func wantsKeepAlive(req *hearth.Request) bool {
	return req.Header("Connection") == "keep-alive"
}
