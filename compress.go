package hearth

import (
	"bytes"
	"fmt"
	"mime"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// DefaultGzipLevel is the compression level used for small textual resources.
const DefaultGzipLevel = 6

// AcceptsGzip reports whether an Accept-Encoding value lists gzip with a
// non-zero quality.
func AcceptsGzip(acceptEncoding string) bool {
	for part := range strings.SplitSeq(acceptEncoding, ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(coding), "gzip") {
			continue
		}
		name, value, found := strings.Cut(strings.TrimSpace(params), "=")
		if found && strings.TrimSpace(name) == "q" {
			q, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err == nil && q == 0 {
				return false
			}
		}
		return true
	}
	return false
}

// IsCompressible reports whether a media type is worth compressing: any
// text/* type, or a JSON type (application/json, application/*+json).
func IsCompressible(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.HasPrefix(mediaType, "text/") || strings.HasSuffix(mediaType, "json")
}

// Gzip compresses data at the given level.
func Gzip(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("gzip writer: %w", err)
	}
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}
