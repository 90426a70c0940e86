package hearth

import (
	"crypto/md5"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// Validator identifies one version of a resource for conditional requests.
type Validator struct {
	ETag         string
	LastModified string
	ModTime      time.Time
}

// ComputeValidator derives a strong entity tag and an HTTP Last-Modified date
// from a file's modification time and size. Equal inputs always give equal
// tags; a change to either input changes the tag.
func ComputeValidator(modTime time.Time, size int64) Validator {
	sum := md5.Sum([]byte(strconv.FormatInt(modTime.UnixNano(), 10) + "-" + strconv.FormatInt(size, 10)))
	return Validator{
		ETag:         `"` + hex.EncodeToString(sum[:]) + `"`,
		LastModified: modTime.UTC().Format(http.TimeFormat),
		ModTime:      modTime,
	}
}

// IsNotModified reports whether the request's validators show the client
// already holds the current version: If-None-Match equal to the tag, or a
// resource no newer (at whole-second precision) than If-Modified-Since.
// An unparsable If-Modified-Since counts as no match.
func IsNotModified(h Headers, v Validator) bool {
	if inm, ok := h.Lookup("If-None-Match"); ok && inm == v.ETag {
		return true
	}

	ims, ok := h.Lookup("If-Modified-Since")
	if !ok {
		return false
	}
	since, err := http.ParseTime(ims)
	if err != nil {
		slog.Debug("ignoring unparsable If-Modified-Since", "value", ims, "err", err)
		return false
	}
	return !v.ModTime.Truncate(time.Second).After(since)
}
