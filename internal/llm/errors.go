package llm

import (
	"errors"
	"fmt"
)

// Kind classifies generation failures so callers can map them to a
// stable error taxonomy without inspecting provider-specific errors.
type Kind string

const (
	KindAuth         Kind = "auth"
	KindRateLimited  Kind = "rate_limited"
	KindTransient    Kind = "transient"
	KindModel        Kind = "model"
	KindModelLoading Kind = "model_loading"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func Errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf extracts the failure kind from an error chain.
func KindOf(err error) (Kind, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind, true
	}
	return "", false
}
