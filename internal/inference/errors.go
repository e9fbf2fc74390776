package inference

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCredentials      = errors.New("missing credentials")
	ErrEndpointUnavailable     = errors.New("endpoint unavailable")
	ErrUnexpectedResponseShape = errors.New("unexpected response shape")
	ErrNetwork                 = errors.New("network error")
	ErrInvalidInput            = errors.New("invalid input")
)

type Kind string

const (
	KindMissingCredentials      Kind = "missing_credentials"
	KindEndpointUnavailable     Kind = "endpoint_unavailable"
	KindUnexpectedResponseShape Kind = "unexpected_response_shape"
	KindNetwork                 Kind = "network_error"
	KindInvalidInput            Kind = "invalid_input"
	KindUnknown                 Kind = "unknown"
)

// Error describes a failed remote inference call. Kind is one of the
// package sentinels, so callers can match with errors.Is.
type Error struct {
	Op         string
	Kind       error
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
		if e.Body != "" {
			msg += ": " + e.Body
		}
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(op string, kind error, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

func MissingCredentials(op, detail string) error {
	return newError(op, ErrMissingCredentials, errors.New(detail))
}

func InvalidInput(op, detail string) error {
	return newError(op, ErrInvalidInput, errors.New(detail))
}

func UnexpectedResponse(op string, err error) error {
	return newError(op, ErrUnexpectedResponseShape, err)
}

func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredentials):
		return KindMissingCredentials
	case errors.Is(err, ErrEndpointUnavailable):
		return KindEndpointUnavailable
	case errors.Is(err, ErrUnexpectedResponseShape):
		return KindUnexpectedResponseShape
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindUnknown
	}
}

// Retryable reports whether repeating the same call could succeed without
// a configuration or input change.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindMissingCredentials, KindInvalidInput:
		return false
	default:
		return true
	}
}
