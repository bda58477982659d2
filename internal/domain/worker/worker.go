// Package worker defines the error taxonomy and the structured result shape
// shared by the gateway, the workers and the coordinator.
package worker

import (
	"errors"
	"fmt"

	"github.com/Strob0t/PaperDesk/internal/domain"
)

// Kind classifies a failure for retry decisions.
type Kind string

const (
	KindValidation Kind = "validation_error"
	KindBusiness   Kind = "business_error"
	KindSystem     Kind = "system_error"
	KindNetwork    Kind = "network_error"
)

// Retryable reports whether failures of this kind may succeed on another attempt.
func (k Kind) Retryable() bool {
	return k == KindSystem || k == KindNetwork
}

// Error is a classified failure raised inside a worker recipe.
type Error struct {
	Kind Kind
	Op   string // gateway operation or recipe stage, may be empty
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds a classified error with a formatted message.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf classifies any error. Classified errors keep their kind, domain
// sentinels map to validation/business, everything else is a system error.
func KindOf(err error) Kind {
	var we *Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &we):
		return we.Kind
	case errors.Is(err, domain.ErrValidation):
		return KindValidation
	case errors.Is(err, domain.ErrNotFound):
		return KindBusiness
	default:
		return KindSystem
	}
}
