package hearth

import "errors"

var (
	// ErrMalformedRequest is returned when a request line cannot be parsed
	ErrMalformedRequest = errors.New("malformed request")
	// ErrNotFound is returned when a resource does not exist or is not a regular file
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when a resource resolves outside the served root
	ErrForbidden = errors.New("forbidden")
	// ErrUnsatisfiableRange is returned when a Range header cannot be served
	ErrUnsatisfiableRange = errors.New("range not satisfiable")
	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
)
