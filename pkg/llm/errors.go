package llm

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when the backend answered 200 but without any text.
var ErrEmptyResponse = errors.New("llm: empty response")

// StatusError is a non-200 answer from an LLM backend.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error: status %d, body: %s", e.Provider, e.StatusCode, e.Body)
}
