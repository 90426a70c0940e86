package hearth

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
)

// Transfer describes a body streamed from a file instead of held in memory.
type Transfer struct {
	File   *os.File
	Offset int64
	Length int64
}

// Response is a fully built HTTP response. Exactly one of Body or Transfer
// carries the payload; a nil Transfer means the response is buffered.
type Response struct {
	Status      int
	ContentType string
	Headers     Headers
	Body        []byte
	Transfer    *Transfer
}

// NewResponse builds a buffered response from body. Byte slices are sent as
// is, strings are UTF-8 encoded, and any other value is encoded as indented
// JSON with the content type forced to application/json.
func NewResponse(status int, contentType string, body any) *Response {
	switch b := body.(type) {
	case nil:
		return Bytes(status, contentType, nil)
	case []byte:
		return Bytes(status, contentType, b)
	case string:
		return Text(status, contentType, b)
	default:
		return JSON(status, b)
	}
}

// JSON encodes v as indented JSON. An encoding failure yields a 500 response.
func JSON(status int, v any) *Response {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		slog.Error("failed to encode json response", "err", err)
		return Error(http.StatusInternalServerError)
	}
	return &Response{
		Status:      status,
		ContentType: "application/json",
		Body:        bytes.TrimSuffix(buf.Bytes(), []byte("\n")),
	}
}

// Text returns a response carrying s.
func Text(status int, contentType, s string) *Response {
	return &Response{Status: status, ContentType: contentType, Body: []byte(s)}
}

// Bytes returns a response carrying b.
func Bytes(status int, contentType string, b []byte) *Response {
	return &Response{Status: status, ContentType: contentType, Body: b}
}

// Error returns a plain-text response whose body is the status reason phrase.
func Error(status int) *Response {
	return Text(status, "text/plain", http.StatusText(status))
}

// IsStreamed reports whether the body is delivered from a file transfer.
func (r *Response) IsStreamed() bool {
	return r.Transfer != nil
}

// ContentLength returns the number of body bytes the response will carry.
func (r *Response) ContentLength() int64 {
	if r.Transfer != nil {
		return r.Transfer.Length
	}
	return int64(len(r.Body))
}

// Close releases the transfer file, if any.
func (r *Response) Close() error {
	if r.Transfer == nil || r.Transfer.File == nil {
		return nil
	}
	return r.Transfer.File.Close()
}

// Head serializes the status line and header block. Content-Length is
// derived from the body unless the response is a 304 or already sets it.
// Caller-supplied headers follow in their original order.
func (r *Response) Head(keepOpen bool) []byte {
	var b bytes.Buffer

	b.WriteString("HTTP/1.1 ")
	b.WriteString(strconv.Itoa(r.Status))
	b.WriteByte(' ')
	b.WriteString(reasonPhrase(r.Status))
	b.WriteString("\r\n")

	if r.ContentType != "" {
		writeField(&b, "Content-Type", withCharset(r.ContentType))
	}

	if keepOpen {
		writeField(&b, "Connection", "keep-alive")
	} else {
		writeField(&b, "Connection", "close")
	}

	if r.Status != http.StatusNotModified && !r.Headers.Has("Content-Length") {
		writeField(&b, "Content-Length", strconv.FormatInt(r.ContentLength(), 10))
	}

	r.Headers.Each(func(name, value string) {
		writeField(&b, name, value)
	})

	b.WriteString("\r\n")
	return b.Bytes()
}

func writeField(b *bytes.Buffer, name, value string) {
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\r\n")
}

func reasonPhrase(status int) string {
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "Unknown"
}

// withCharset declares UTF-8 for text/* media types that carry no parameters.
func withCharset(contentType string) string {
	if strings.HasPrefix(contentType, "text/") && !strings.Contains(contentType, ";") {
		return contentType + "; charset=utf-8"
	}
	return contentType
}
