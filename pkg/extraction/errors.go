package extraction

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned before any network call when the text is blank.
var ErrEmptyInput = errors.New("extraction: input is empty")

// ServiceError wraps any transport, auth or quota failure talking to the
// generative-text service. It is never retried automatically.
type ServiceError struct {
	Op string
	// StatusCode is the HTTP status reported by the backend, 0 for transport errors.
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("extraction %s: service returned status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("extraction %s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// MalformedResponseError means the service answered, but the answer could not
// be decoded into a Result. Nothing from such an answer may be merged.
type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed model response: %s: %v", e.Reason, e.Err)
	}
	return "malformed model response: " + e.Reason
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

func malformed(reason string, err error) *MalformedResponseError {
	return &MalformedResponseError{Reason: reason, Err: err}
}
