package hearth

import (
	"fmt"
	"strconv"
	"strings"
)

// ByteRange is an inclusive span of byte offsets within a resource.
type ByteRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes covered by the range.
func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange formats the range as a Content-Range value for a resource of size bytes.
func (r ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// UnsatisfiedContentRange is the Content-Range value sent with a 416 response.
func UnsatisfiedContentRange(size int64) string {
	return "bytes */" + strconv.FormatInt(size, 10)
}

// ParseRange evaluates a single-range Range header against a resource of
// size bytes. It accepts "bytes=S-E", "bytes=S-" and "bytes=-N". Anything
// else, including range lists, returns ErrUnsatisfiableRange.
func ParseRange(header string, size int64) (ByteRange, error) {
	unit, set, _ := strings.Cut(header, "=")
	if strings.TrimSpace(unit) != "bytes" {
		return ByteRange{}, fmt.Errorf("%w: unit %q", ErrUnsatisfiableRange, unit)
	}

	first, last, _ := strings.Cut(strings.TrimSpace(set), "-")
	if first == "" && last == "" {
		return ByteRange{}, fmt.Errorf("%w: empty range", ErrUnsatisfiableRange)
	}

	if !digits(first) || !digits(last) {
		return ByteRange{}, fmt.Errorf("%w: malformed range %q", ErrUnsatisfiableRange, set)
	}

	var r ByteRange
	if first == "" {
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil {
			return ByteRange{}, fmt.Errorf("%w: suffix length %q", ErrUnsatisfiableRange, last)
		}
		if n <= 0 {
			return ByteRange{}, fmt.Errorf("%w: suffix length %d", ErrUnsatisfiableRange, n)
		}
		r = ByteRange{Start: max(0, size-n), End: size - 1}
	} else {
		start, err := strconv.ParseInt(first, 10, 64)
		if err != nil {
			return ByteRange{}, fmt.Errorf("%w: start %q", ErrUnsatisfiableRange, first)
		}
		end := size - 1
		if last != "" {
			end, err = strconv.ParseInt(last, 10, 64)
			if err != nil {
				return ByteRange{}, fmt.Errorf("%w: end %q", ErrUnsatisfiableRange, last)
			}
		}
		if start > end {
			return ByteRange{}, fmt.Errorf("%w: start %d after end %d", ErrUnsatisfiableRange, start, end)
		}
		r = ByteRange{Start: start, End: end}
	}

	if r.Start < 0 || r.End >= size || r.Start > r.End {
		return ByteRange{}, fmt.Errorf("%w: %d-%d outside %d bytes", ErrUnsatisfiableRange, r.Start, r.End, size)
	}
	return r, nil
}

// digits reports whether s is empty or made only of ASCII digits.
func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
