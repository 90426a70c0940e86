// Package http implements the connection layer of hearth: the accept loop,
// the per-connection session, and the static-file delivery pipeline.
//
// It does not use net/http's server. Each accepted net.Conn gets its own
// goroutine running a small state machine:
//
//	awaiting_request -> dispatching -> responding -> awaiting_request | closed
//
// # Sessions
//
// A session reads one request per socket read, bounded by the idle timeout.
// A timeout sends a best-effort 408 and closes; a clean EOF just closes.
// After each response the connection stays open only if the request carried
// "Connection: keep-alive". Handler panics and internal I/O errors are turned
// into a 500 that closes the connection without affecting other sessions.
//
// # Static Files
//
// Requests with no registered handler fall through to the FileStore for GET
// and HEAD:
//
//   - 404 when the path does not name a regular file
//   - 403 when it resolves outside the root
//   - 304 when If-None-Match or If-Modified-Since match
//   - 206 / 416 for a Range header
//   - 200 buffered (with optional gzip) up to StreamThreshold bytes
//   - 200 streamed above it, using sendfile on TCP connections
//
// The socket has no deadline while a body is written, so a large download is
// never truncated by a short idle timeout.
//
// # Usage
//
//	store, err := filesystem.NewStore("./public")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv := http.NewServer(&http.Config{Addr: ":8000"}, routes, store)
//	if err := srv.ListenAndServe(ctx); err != nil {
//	    log.Fatal(err)
//	}
package http
