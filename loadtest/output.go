package loadtest

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/dustin/go-humanize"
)

// Formatter formats results for output.
type Formatter interface {
	FormatResult(w io.Writer, result *Result) error
	FormatError(w io.Writer, err error) error
}

// NewFormatter returns the appropriate formatter based on flags.
func NewFormatter(jsonOutput bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &HumanFormatter{}
}

// HumanFormatter outputs human-readable text.
type HumanFormatter struct{}

// FormatResult formats a run summary as human-readable text.
func (f *HumanFormatter) FormatResult(w io.Writer, r *Result) error {
	_, _ = fmt.Fprintf(w, "Target:       %s\n", r.URL)
	_, _ = fmt.Fprintf(w, "Requests:     %d (concurrency %d)\n", r.Requests, r.Concurrency)
	_, _ = fmt.Fprintf(w, "Succeeded:    %d\n", r.Succeeded)
	_, _ = fmt.Fprintf(w, "Failed:       %d\n", r.Failed)
	_, _ = fmt.Fprintf(w, "Transferred:  %s\n", humanize.Bytes(uint64(max(r.Bytes, 0))))
	_, _ = fmt.Fprintf(w, "Took:         %s (%s req/s)\n", r.Elapsed, humanize.FormatFloat("#,###.##", r.RequestsPerSecond()))
	_, _ = fmt.Fprintf(w, "Latency:      min %s  mean %s  p50 %s  p99 %s  max %s\n",
		r.Latency.Min, r.Latency.Mean, r.Latency.P50, r.Latency.P99, r.Latency.Max)

	if len(r.StatusCodes) > 0 {
		_, _ = fmt.Fprintln(w, "Status codes:")
		for _, code := range slices.Sorted(maps.Keys(r.StatusCodes)) {
			_, _ = fmt.Fprintf(w, "  %d: %s\n", code, humanize.Comma(int64(r.StatusCodes[code])))
		}
	}
	if len(r.Errors) > 0 {
		_, _ = fmt.Fprintln(w, "Errors:")
		for _, msg := range slices.Sorted(maps.Keys(r.Errors)) {
			_, _ = fmt.Fprintf(w, "  %dx %s\n", r.Errors[msg], msg)
		}
	}
	return nil
}

// FormatError formats an error as human-readable text.
func (f *HumanFormatter) FormatError(w io.Writer, err error) error {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	return nil
}

// JSONFormatter outputs JSON.
type JSONFormatter struct{}

// FormatResult formats a run summary as JSON.
func (f *JSONFormatter) FormatResult(w io.Writer, r *Result) error {
	return writeJSON(w, r)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	return writeJSON(w, map[string]string{"error": err.Error()})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
