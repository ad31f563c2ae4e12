package schema

import (
	"errors"
	"fmt"
	"strings"
)

// LoadError is returned by every validation step of the core.
// A stage that returns it produced nothing usable.
type LoadError struct {
	Message string
	// Каждая найденная проблема отдельной строкой
	Details []string
}

func (e *LoadError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return e.Message + ":\n" + strings.Join(e.Details, "\n")
}

// NewLoadError formats the message and attaches details.
func NewLoadError(details []string, format string, args ...any) *LoadError {
	return &LoadError{
		Message: fmt.Sprintf(format, args...),
		Details: details,
	}
}

// IsLoadError reports whether err wraps a *LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}
