package oracle

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimeout matches every *TimeoutError with errors.Is.
var ErrTimeout = errors.New("oracle call timed out")

// TimeoutError is returned when a call did not finish before its deadline.
type TimeoutError struct {
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	if e.Timeout == 0 {
		return ErrTimeout.Error()
	}
	return fmt.Sprintf("oracle call timed out after %s", e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// CallError is any other failure of the backend.
type CallError struct {
	Provider string
	// 0 если ответ не был получен
	StatusCode int
	Err        error
}

func (e *CallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s call failed with status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s call failed: %v", e.Provider, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// ParseError means the response text did not contain the expected JSON document.
type ParseError struct {
	Response string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse oracle response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a timeout of an oracle call.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }
