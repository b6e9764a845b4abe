// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Two error shapes exist:
//
//	{ "status": "error", "error": "request body is empty" }   // GeneralError
//	{ "error": { "email": "field email is required" } }        // ValidationError
//
// The second one is what clients receive with a 422 and is keyed by the
// JSON name of each failing field.
package response

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// Response is the envelope returned for general error cases.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// FieldErrors is the envelope returned with 422 Unprocessable Entity.
type FieldErrors struct {
	Error map[string]string `json:"error"`
}

const StatusError = "error"

// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// GeneralError wraps any Go error into the standard Response shape.
func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

// ValidationError converts validator.FieldError values into a map from the
// field's JSON name to a human-readable message. Only the first failing
// rule of each field is reported.
//
// The validator must report JSON names (see student.NewValidator) for the keys to
// line up with what clients send.
func ValidationError(errs validator.ValidationErrors) FieldErrors {
	fields := make(map[string]string, len(errs))

	for _, e := range errs {
		if _, seen := fields[e.Field()]; seen {
			continue
		}
		fields[e.Field()] = FieldMessage(e)
	}

	return FieldErrors{Error: fields}
}

// FieldMessage renders one validation failure as an English sentence.
func FieldMessage(e validator.FieldError) string {
	switch e.ActualTag() {
	case "required":
		return fmt.Sprintf("field %s is required", e.Field())
	case "email":
		return fmt.Sprintf("field %s must be a valid email address", e.Field())
	case "oneof":
		return fmt.Sprintf("field %s must be one of: %s", e.Field(), e.Param())
	default:
		return fmt.Sprintf("field %s is invalid", e.Field())
	}
}
