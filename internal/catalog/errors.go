package catalog

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	// ErrRequestFailed is the generic failure of a catalog request.
	ErrRequestFailed = errors.New("catalog request failed")
	// ErrConnectionRefused means the server could not be reached at all.
	ErrConnectionRefused = errors.New("catalog connection refused")
	// ErrConflict means the server already holds an entity with that name.
	ErrConflict = errors.New("conflicting data")
	// ErrUpload means the server rejected uploaded data.
	ErrUpload = errors.New("upload error")
)

// RequestError carries the details of a failed catalog request.
type RequestError struct {
	Method string
	URL    string
	Status int
	Body   string
	Err    error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Is matches ErrRequestFailed for every request error and ErrConnectionRefused
// when the transport was refused.
func (e *RequestError) Is(target error) bool {
	switch target {
	case ErrRequestFailed:
		return true
	case ErrConnectionRefused:
		return errors.Is(e.Err, syscall.ECONNREFUSED)
	}
	return false
}
