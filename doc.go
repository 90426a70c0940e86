// Package hearth provides the protocol core of a small HTTP/1.1 server that
// reads and writes the wire format directly over TCP connections.
//
// The package is transport agnostic: it turns request bytes into a Request,
// resolves handlers from an immutable RouteTable, evaluates conditional and
// range requests, and serializes Response heads. The connection loop and the
// static-file pipeline live in the http package.
//
// # Key Components
//
//   - ParseRequest: request line, query string and header parsing
//   - RouteTable: exact-path handler registry built once at startup
//   - ComputeValidator / IsNotModified: ETag and Last-Modified handling
//   - ParseRange: single byte-range evaluation
//   - Response: buffered bodies or file Transfers, and head serialization
//
// # Example Usage
//
//	routes := hearth.NewRouteTable()
//	routes.Register("/hello", hearth.HandlerFunc(func(req *hearth.Request) *hearth.Response {
//	    return hearth.Text(200, "text/html", "<h1>Hello, World!</h1>")
//	}))
//
//	req, err := hearth.ParseRequest(buf[:n], routes)
//	if err != nil {
//	    // hearth.ErrMalformedRequest
//	}
//	resp := req.Handler.ServeRequest(req)
//	conn.Write(resp.Head(true))
//	conn.Write(resp.Body)
package hearth
