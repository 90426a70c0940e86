package hearth

import (
	"maps"
	"slices"
)

// Handler builds a complete response for a request. Handlers see only the
// request; they have no access to the connection.
type Handler interface {
	ServeRequest(req *Request) *Response
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(req *Request) *Response

// ServeRequest calls f(req).
func (f HandlerFunc) ServeRequest(req *Request) *Response {
	return f(req)
}

// RouteTable maps exact request paths to handlers. It is populated at startup
// and only read afterwards, so concurrent lookups need no locking.
type RouteTable struct {
	routes map[string]Handler
}

// NewRouteTable returns an empty route table.
func NewRouteTable() *RouteTable {
	return &RouteTable{routes: make(map[string]Handler)}
}

// Register binds handler to path. Registering the same path again replaces
// the previous handler.
func (t *RouteTable) Register(path string, handler Handler) {
	t.routes[path] = handler
}

// Resolve returns the handler bound to path.
func (t *RouteTable) Resolve(path string) (Handler, bool) {
	h, ok := t.routes[path]
	return h, ok
}

// Paths returns the registered paths in sorted order.
func (t *RouteTable) Paths() []string {
	return slices.Sorted(maps.Keys(t.routes))
}

// Len returns the number of registered paths.
func (t *RouteTable) Len() int {
	return len(t.routes)
}
