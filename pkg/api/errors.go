package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when a key or element is missing from a response.
	ErrNotFound = errors.New("value not found")

	// ErrUnexpectedShape is returned when a topic does not decode to the expected JSON kind.
	ErrUnexpectedShape = errors.New("unexpected response shape")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Topic string
	Code  int
	Body  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("error during http request for %s (return code %d): %s", e.Topic, e.Code, e.Body)
}

// IsUnauthorized reports whether err is a 401 or 403 from the API.
func IsUnauthorized(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}

	return se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden
}

// IsNotFound reports whether err is a 404 from the API or a missing value.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}

	var se *StatusError

	return errors.As(err, &se) && se.Code == http.StatusNotFound
}
