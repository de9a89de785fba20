package catalog

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is matched by StatusError values carrying a 404.
var ErrNotFound = errors.New("episode not found")

// StatusError reports a non-2xx response from the content API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("content api: http %d", e.StatusCode)
	}
	return fmt.Sprintf("content api: http %d: %s", e.StatusCode, e.Body)
}

// Is reports a 404 as ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// ParseError reports a record that does not match the expected episode schema.
type ParseError struct {
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid episode record: %s: %s", e.Field, e.Reason)
}
