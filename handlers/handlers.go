// Package handlers provides hearth's built-in application handlers and the
// catalog used to bind configured route names to them at startup.
package handlers

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/sagarc03/hearth"
)

// ErrUnknownHandler is returned when a route names a handler that is not in the catalog.
var ErrUnknownHandler = errors.New("unknown handler")

// Catalog maps handler names to handlers.
type Catalog map[string]hearth.Handler

// Default returns the built-in handlers.
func Default() Catalog {
	return Catalog{
		"hello":   hearth.HandlerFunc(Hello),
		"welcome": hearth.HandlerFunc(Welcome),
		"time":    Clock(time.Now),
		"health":  hearth.HandlerFunc(Health),
	}
}

// Names returns the handler names in sorted order.
func (c Catalog) Names() []string {
	return slices.Sorted(maps.Keys(c))
}

// Bind builds a route table from a path -> handler-name mapping. Every name
// must exist in the catalog.
func (c Catalog) Bind(routes map[string]string) (*hearth.RouteTable, error) {
	table := hearth.NewRouteTable()
	for _, path := range slices.Sorted(maps.Keys(routes)) {
		name := routes[path]
		h, ok := c[name]
		if !ok {
			return nil, fmt.Errorf("bind %s: %w: %q (known: %v)", path, ErrUnknownHandler, name, c.Names())
		}
		table.Register(path, h)
	}
	return table, nil
}

// Hello greets the caller with a small HTML page.
func Hello(_ *hearth.Request) *hearth.Response {
	return hearth.Text(http.StatusOK, "text/html", "<h1>Hello, World!</h1>")
}

// Welcome is the plain-text landing response.
func Welcome(_ *hearth.Request) *hearth.Response {
	return hearth.Text(http.StatusOK, "text/plain", "Welcome to hearth")
}

// Health reports that the server is able to answer requests.
func Health(_ *hearth.Request) *hearth.Response {
	return hearth.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// TimeResponse is the body returned by the time handler.
type TimeResponse struct {
	Time        string              `json:"time"`
	QueryParams map[string][]string `json:"query_params"`
}

// Clock returns a handler that reports the current local time and echoes
// the request's query parameters.
func Clock(now func() time.Time) hearth.Handler {
	return hearth.HandlerFunc(func(req *hearth.Request) *hearth.Response {
		params := map[string][]string(req.Query)
		if params == nil {
			params = map[string][]string{}
		}
		return hearth.JSON(http.StatusOK, TimeResponse{
			Time:        now().Format(time.DateTime),
			QueryParams: params,
		})
	})
}
