package hearth

import (
	"fmt"
	"net/textproto"
	"net/url"
	"strings"
)

// Request is a single parsed HTTP request. It is built once per request read
// from a connection and discarded after the response is written.
type Request struct {
	Method     string
	Path       string
	RawQuery   string
	Version    string
	Query      url.Values
	Headers    Headers
	RemoteAddr string

	// Handler is the route bound to Path, or nil when the path has no route.
	Handler Handler
}

// Header returns the value of the named request header.
func (r *Request) Header(name string) string {
	return r.Headers.Get(name)
}

// IsHead reports whether the request only wants the response head.
func (r *Request) IsHead() bool {
	return r.Method == "HEAD"
}

// ParseRequest parses the bytes of a single socket read into a Request.
// Lines may end in "\n" or "\r\n". A request line with fewer than two tokens
// yields ErrMalformedRequest. The handler is resolved from routes by exact
// path; routes may be nil.
func ParseRequest(data []byte, routes *RouteTable) (*Request, error) {
	lines := strings.Split(string(data), "\n")

	requestLine := strings.TrimSuffix(lines[0], "\r")
	parts := strings.Fields(requestLine)
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: request line %q", ErrMalformedRequest, requestLine)
	}

	req := &Request{Method: parts[0]}
	if len(parts) > 2 {
		req.Version = parts[2]
	}

	target, rawQuery, _ := strings.Cut(parts[1], "?")
	path, err := url.PathUnescape(target)
	if err != nil {
		return nil, fmt.Errorf("%w: path %q: %w", ErrMalformedRequest, target, err)
	}
	req.Path = path
	req.RawQuery = rawQuery
	req.Query = ParseQuery(rawQuery)

	for _, line := range lines[1:] {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			break
		}
		name, value, found := strings.Cut(line, ": ")
		if !found {
			continue
		}
		req.Headers.Set(textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(name)), strings.TrimSpace(value))
	}

	if routes != nil {
		if h, ok := routes.Resolve(path); ok {
			req.Handler = h
		}
	}

	return req, nil
}

// ParseQuery decodes a form-encoded query string. Repeated keys append to the
// same key. Pairs that fail to decode are skipped.
func ParseQuery(rawQuery string) url.Values {
	values := url.Values{}
	for pair := range strings.SplitSeq(rawQuery, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			continue
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			continue
		}
		values[key] = append(values[key], value)
	}
	return values
}
