package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrNotFound is returned when the API answers 404.
var ErrNotFound = errors.New("student not found")

// ErrInvalidID is returned without a request for ids that cannot name a
// single student.
var ErrInvalidID = errors.New("invalid student id")

// ValidationError carries the per-field messages of a 422 answer.
// Fields is keyed by the JSON name of the offending field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, e.Fields[name])
	}

	return "validation failed: " + strings.Join(msgs, ", ")
}

// HTTPError is any other non-2xx answer.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("api error: %d %s", e.StatusCode, e.Message)
}

// AsValidationError reports whether err carries field errors and returns them.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

func decodeError(status int, body []byte) error {
	switch status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnprocessableEntity:
		var payload struct {
			Error map[string]string `json:"error"`
		}
		if err := json.Unmarshal(body, &payload); err == nil && len(payload.Error) > 0 {
			return &ValidationError{Fields: payload.Error}
		}
	}

	var general struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &general); err == nil && general.Error != "" {
		return &HTTPError{StatusCode: status, Message: general.Error}
	}

	return &HTTPError{StatusCode: status, Message: strings.TrimSpace(string(body))}
}
