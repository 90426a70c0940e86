package http_test

import (
	"bufio"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sagarc03/hearth"
	"github.com/sagarc03/hearth/filesystem"
	hearthhttp "github.com/sagarc03/hearth/http"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeFiles creates files relative to dir.
func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func newStore(t *testing.T, dir string) *filesystem.Store {
	t.Helper()

	store, err := filesystem.NewStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// client is the test side of a piped connection served by a session.
type client struct {
	conn net.Conn
	r    *bufio.Reader
	done chan struct{}
}

// pipe starts a session for srv on one end of a net.Pipe.
func pipe(t *testing.T, srv *hearthhttp.Server) *client {
	t.Helper()

	serverConn, clientConn := net.Pipe()
	c := &client{conn: clientConn, r: bufio.NewReader(clientConn), done: make(chan struct{})}

	go func() {
		defer close(c.done)
		srv.ServeConn(serverConn)
	}()
	t.Cleanup(func() {
		_ = clientConn.Close()
		<-c.done
	})
	return c
}

func (c *client) send(t *testing.T, raw string) {
	t.Helper()

	require.NoError(t, c.conn.SetWriteDeadline(time.Now().Add(5*time.Second)))
	_, err := c.conn.Write([]byte(raw))
	require.NoError(t, err)
}

func (c *client) read(t *testing.T, method string) (*http.Response, []byte) {
	t.Helper()

	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	resp, err := http.ReadResponse(c.r, &http.Request{Method: method})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func (c *client) do(t *testing.T, method, raw string) (*http.Response, []byte) {
	t.Helper()

	c.send(t, raw)
	return c.read(t, method)
}

// closed waits for the server to end the session.
func (c *client) closed(t *testing.T) {
	t.Helper()

	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err := c.r.ReadByte()
	require.ErrorIs(t, err, io.EOF)

	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		t.Fatal("session did not end")
	}
}

func textHandler(body string) hearth.Handler {
	return hearth.HandlerFunc(func(*hearth.Request) *hearth.Response {
		return hearth.Text(http.StatusOK, "text/plain", body)
	})
}

func newReader(conn net.Conn) *bufio.Reader {
	return bufio.NewReader(conn)
}
