package fault

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound            = errors.New("resource not found")
	ErrUniqueViolation     = errors.New("unique violation")
	ErrForeignKeyViolation = errors.New("restricted for deletion")
	ErrAlreadyCompleted    = errors.New("response already completed")
)

type ErrorType int

const (
	ErrClient ErrorType = iota
	ErrInternal
)

type Fault struct {
	Type    ErrorType
	Message string
	Err     error
	// Details lists individual problems, e.g. one per invalid field.
	Details []string
}

func (e *Fault) Error() string {
	msg := e.Message
	if len(e.Details) > 0 {
		msg = fmt.Sprintf("%s (%s)", msg, strings.Join(e.Details, "; "))
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.typeString(), msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.typeString(), msg)
}

// Unwrap allows errors.Is and errors.As to work.
func (e *Fault) Unwrap() error {
	return e.Err
}

// typeString returns a human-readable representation of the error type.
func (e *Fault) typeString() string {
	switch e.Type {
	case ErrClient:
		return "ClientError"
	case ErrInternal:
		return "InternalError"
	default:
		return "UnknownError"
	}
}

// NewClientError creates a new client error.
func NewClientError(msg string, err error) error {
	return &Fault{
		Type:    ErrClient,
		Message: msg,
		Err:     err,
	}
}

// NewInternalError creates a new internal server error.
func NewInternalError(msg string, err error) error {
	return &Fault{
		Type:    ErrInternal,
		Message: msg,
		Err:     err,
	}
}

// NewValidationError creates a client error listing every failed check.
// It returns nil when there is nothing to report.
func NewValidationError(details []string) error {
	if len(details) == 0 {
		return nil
	}
	return &Fault{
		Type:    ErrClient,
		Message: "validation failed",
		Details: details,
	}
}

// IsClientError checks if an error is a client error.
func IsClientError(err error) bool {
	var ce *Fault
	if errors.As(err, &ce) {
		return ce.Type == ErrClient
	}
	return false
}

// IsInternalError checks if an error is an internal error.
func IsInternalError(err error) bool {
	var ce *Fault
	if errors.As(err, &ce) {
		return ce.Type == ErrInternal
	}
	return false
}

// Details returns the individual problems attached to err, if any.
func Details(err error) []string {
	var ce *Fault
	if errors.As(err, &ce) {
		return ce.Details
	}
	return nil
}
