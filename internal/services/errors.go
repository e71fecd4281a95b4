package services

import (
	"fmt"

	"github.com/pkg/errors"
)

// Terminal failures of the upload pipeline.
var (
	ErrTypeMismatch           = errors.New("type mismatch")
	ErrNameConflict           = errors.New("name conflict")
	ErrUploadFailed           = errors.New("upload failed")
	ErrProjectionUnresolvable = errors.New("projection unresolvable")
	ErrResourceMissing        = errors.New("resource missing")
)

// ErrLocalRecordExists is returned by Cleanup when a local layer still
// depends on the remote artifacts.
var ErrLocalRecordExists = errors.New("local layer record exists")

// PublishError is a descriptive pipeline failure with its cause attached.
type PublishError struct {
	Kind    error
	Name    string
	Message string
	Err     error
}

func (e *PublishError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches the failure kind.
func (e *PublishError) Is(target error) bool {
	return target == e.Kind
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

func publishErr(kind error, name string, cause error, format string, args ...any) error {
	return errors.WithStack(&PublishError{
		Kind:    kind,
		Name:    name,
		Message: fmt.Sprintf(format, args...),
		Err:     cause,
	})
}

// traceback renders the stack recorded by pkg/errors, if any.
func traceback(err error) string {
	type stackTracer interface {
		StackTrace() errors.StackTrace
	}
	var st stackTracer
	if errors.As(err, &st) {
		return fmt.Sprintf("%+v", st.StackTrace())
	}
	return ""
}
