package hearth_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/hearth"
)

func TestParseRequest(t *testing.T) {
	t.Run("request line and headers", func(t *testing.T) {
		raw := "GET /index.html HTTP/1.1\r\nHost: localhost\r\nAccept-Encoding: gzip\r\n\r\n"

		req, err := hearth.ParseRequest([]byte(raw), nil)
		require.NoError(t, err)

		assert.Equal(t, http.MethodGet, req.Method)
		assert.Equal(t, "/index.html", req.Path)
		assert.Equal(t, "HTTP/1.1", req.Version)
		assert.Equal(t, "localhost", req.Header("Host"))
		assert.Equal(t, "gzip", req.Header("accept-encoding"))
		assert.Nil(t, req.Handler)
	})

	t.Run("bare newlines", func(t *testing.T) {
		req, err := hearth.ParseRequest([]byte("HEAD /a HTTP/1.1\nRange: bytes=0-1\n\n"), nil)
		require.NoError(t, err)

		assert.True(t, req.IsHead())
		assert.Equal(t, "bytes=0-1", req.Header("Range"))
	})

	t.Run("version is optional", func(t *testing.T) {
		req, err := hearth.ParseRequest([]byte("GET /\r\n\r\n"), nil)
		require.NoError(t, err)
		assert.Equal(t, "/", req.Path)
		assert.Empty(t, req.Version)
	})

	t.Run("query string", func(t *testing.T) {
		req, err := hearth.ParseRequest([]byte("GET /time?a=1&a=2&b=x HTTP/1.1\r\n\r\n"), nil)
		require.NoError(t, err)

		assert.Equal(t, "/time", req.Path)
		assert.Equal(t, "a=1&a=2&b=x", req.RawQuery)
		assert.Equal(t, url.Values{"a": {"1", "2"}, "b": {"x"}}, req.Query)
	})

	t.Run("percent-decoded path", func(t *testing.T) {
		req, err := hearth.ParseRequest([]byte("GET /my%20file.txt HTTP/1.1\r\n\r\n"), nil)
		require.NoError(t, err)
		assert.Equal(t, "/my file.txt", req.Path)
	})

	t.Run("path is not cleaned", func(t *testing.T) {
		req, err := hearth.ParseRequest([]byte("GET /../etc/passwd HTTP/1.1\r\n\r\n"), nil)
		require.NoError(t, err)
		assert.Equal(t, "/../etc/passwd", req.Path)
	})

	t.Run("last duplicate header wins", func(t *testing.T) {
		raw := "GET / HTTP/1.1\r\nConnection: close\r\nconnection: keep-alive\r\n\r\n"
		req, err := hearth.ParseRequest([]byte(raw), nil)
		require.NoError(t, err)

		assert.Equal(t, "keep-alive", req.Header("Connection"))
		assert.Equal(t, 1, req.Headers.Len())
	})

	t.Run("lines without separator are skipped", func(t *testing.T) {
		raw := "GET / HTTP/1.1\r\nnot a header\r\nX-Ok: yes\r\n\r\n"
		req, err := hearth.ParseRequest([]byte(raw), nil)
		require.NoError(t, err)

		assert.Equal(t, "yes", req.Header("X-Ok"))
		assert.Equal(t, 1, req.Headers.Len())
	})

	t.Run("headers stop at blank line", func(t *testing.T) {
		raw := "GET / HTTP/1.1\r\nA: 1\r\n\r\nB: 2\r\n"
		req, err := hearth.ParseRequest([]byte(raw), nil)
		require.NoError(t, err)
		assert.False(t, req.Headers.Has("B"))
	})

	t.Run("resolves handler", func(t *testing.T) {
		routes := hearth.NewRouteTable()
		routes.Register("/hello", hearth.HandlerFunc(func(*hearth.Request) *hearth.Response {
			return hearth.Text(http.StatusOK, "text/plain", "hi")
		}))

		req, err := hearth.ParseRequest([]byte("GET /hello?x=1 HTTP/1.1\r\n\r\n"), routes)
		require.NoError(t, err)
		require.NotNil(t, req.Handler)

		other, err := hearth.ParseRequest([]byte("GET /hello/ HTTP/1.1\r\n\r\n"), routes)
		require.NoError(t, err)
		assert.Nil(t, other.Handler)
	})

	t.Run("malformed", func(t *testing.T) {
		tests := []struct {
			name string
			raw  string
		}{
			{"empty", ""},
			{"one token", "GET\r\n\r\n"},
			{"blank line", "\r\n"},
			{"bad escape", "GET /%zz HTTP/1.1\r\n\r\n"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := hearth.ParseRequest([]byte(tt.raw), nil)
				assert.ErrorIs(t, err, hearth.ErrMalformedRequest)
			})
		}
	})
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want url.Values
	}{
		{"empty", "", url.Values{}},
		{"repeated keys", "a=1&a=2&b=x", url.Values{"a": {"1", "2"}, "b": {"x"}}},
		{"plus and escapes", "q=hello+world&p=%2Fx", url.Values{"q": {"hello world"}, "p": {"/x"}}},
		{"blank value", "flag", url.Values{"flag": {""}}},
		{"empty pairs", "a=1&&b=2&", url.Values{"a": {"1"}, "b": {"2"}}},
		{"undecodable pair skipped", "a=%zz&b=2", url.Values{"b": {"2"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hearth.ParseQuery(tt.raw))
		})
	}
}

func TestRouteTable(t *testing.T) {
	table := hearth.NewRouteTable()
	first := hearth.HandlerFunc(func(*hearth.Request) *hearth.Response { return hearth.Error(http.StatusTeapot) })
	second := hearth.HandlerFunc(func(*hearth.Request) *hearth.Response { return hearth.Error(http.StatusAccepted) })

	table.Register("/b", first)
	table.Register("/a", first)
	table.Register("/a", second)

	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []string{"/a", "/b"}, table.Paths())

	h, ok := table.Resolve("/a")
	require.True(t, ok)
	assert.Equal(t, http.StatusAccepted, h.ServeRequest(nil).Status)

	_, ok = table.Resolve("/c")
	assert.False(t, ok)
}

func TestHeaders(t *testing.T) {
	var h hearth.Headers
	h.Add("X-One", "1")
	h.Add("x-one", "2")
	h.Add("X-Two", "a")

	assert.Equal(t, "1", h.Get("X-ONE"))
	assert.Equal(t, 3, h.Len())

	h.Set("X-One", "3")
	assert.Equal(t, []hearth.Field{{Name: "X-One", Value: "3"}, {Name: "X-Two", Value: "a"}}, h.Fields())

	h.Set("X-Three", "c")
	assert.True(t, h.Has("x-three"))

	h.Del("x-two")
	_, ok := h.Lookup("X-Two")
	assert.False(t, ok)

	var names []string
	h.Each(func(name, _ string) { names = append(names, name) })
	assert.Equal(t, []string{"X-One", "X-Three"}, names)
}
