package http

import (
	"fmt"
	"io"
	"net"

	"github.com/sagarc03/hearth"
)

// writeResponse writes resp to w and returns the number of bytes sent.
// Buffered responses go out in one vectored write. Transfers write the head,
// then copy the file span; when w is a *net.TCPConn the copy is handed to
// ReadFrom, which uses sendfile where the platform supports it, and
// otherwise proceeds in chunkSize pieces. headOnly suppresses the body.
func writeResponse(w io.Writer, resp *hearth.Response, keepOpen, headOnly bool, chunkSize int) (int64, error) {
	head := resp.Head(keepOpen)

	if resp.Transfer == nil {
		bufs := net.Buffers{head}
		if !headOnly && len(resp.Body) > 0 {
			bufs = append(bufs, resp.Body)
		}
		n, err := bufs.WriteTo(w)
		if err != nil {
			return n, fmt.Errorf("write response: %w", err)
		}
		return n, nil
	}

	hn, err := w.Write(head)
	written := int64(hn)
	if err != nil {
		return written, fmt.Errorf("write head: %w", err)
	}
	if headOnly || resp.Transfer.Length == 0 {
		return written, nil
	}

	bn, err := copyTransfer(w, resp.Transfer, chunkSize)
	written += bn
	if err != nil {
		return written, err
	}
	return written, nil
}

func copyTransfer(w io.Writer, t *hearth.Transfer, chunkSize int) (int64, error) {
	if t.File == nil {
		return 0, fmt.Errorf("%w: transfer has no source file", hearth.ErrInternal)
	}
	if _, err := t.File.Seek(t.Offset, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek transfer: %w", err)
	}

	n, err := io.CopyBuffer(w, io.LimitReader(t.File, t.Length), make([]byte, chunkSize))
	if err != nil {
		return n, fmt.Errorf("stream body: %w", err)
	}
	if n < t.Length {
		return n, fmt.Errorf("stream body: %w after %d of %d bytes", io.ErrUnexpectedEOF, n, t.Length)
	}
	return n, nil
}
