// Package apiutil provides the JSON envelope helpers used by all API
// handlers. Success responses wrap the payload in {"data": ...};
// error responses carry a machine code, a human message, and (for
// validation failures) per-field details.
package apiutil

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// Error codes used in the error envelope.
const (
	CodeBadRequest   = "bad_request"
	CodeUnauthorized = "unauthorized"
	CodeForbidden    = "forbidden"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeValidation   = "validation_failed"
	CodeInternal     = "internal_error"
)

// envelope is the top-level response shape.
type envelope struct {
	Data  any       `json:"data,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// WriteJSON writes a success envelope with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Data: data}); err != nil {
		zap.L().Error("response encode failed", zap.Error(err))
	}
}

// WriteError writes an error envelope.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeErr(w, status, &apiError{Code: code, Message: message})
}

// WriteValidationError writes a 422 with per-field messages, surfaced
// verbatim to the caller.
func WriteValidationError(w http.ResponseWriter, message string, fields map[string]string) {
	writeErr(w, http.StatusUnprocessableEntity, &apiError{
		Code:    CodeValidation,
		Message: message,
		Fields:  fields,
	})
}

// WriteBadRequest writes a 400.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeBadRequest, message)
}

// WriteUnauthorized writes a 401.
func WriteUnauthorized(w http.ResponseWriter) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "Sign in required.")
}

// WriteForbidden writes a 403.
func WriteForbidden(w http.ResponseWriter, message string) {
	if message == "" {
		message = "You don't have permission to do that."
	}
	WriteError(w, http.StatusForbidden, CodeForbidden, message)
}

// WriteNotFound writes a 404.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// WriteConflict writes a 409.
func WriteConflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeConflict, message)
}

// WriteServerError logs the underlying error and writes a generic 500.
// The internal detail never reaches the caller.
func WriteServerError(w http.ResponseWriter, log *zap.Logger, msg string, err error) {
	if log != nil {
		log.Error(msg, zap.Error(err))
	}
	WriteError(w, http.StatusInternalServerError, CodeInternal, "An internal error occurred.")
}

func writeErr(w http.ResponseWriter, status int, e *apiError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Error: e}); err != nil {
		zap.L().Error("error response encode failed", zap.Error(err))
	}
}

// ErrBodyTooLarge is returned by DecodeJSON when the request body
// exceeds the limit.
var ErrBodyTooLarge = errors.New("request body too large")

// maxBodyBytes bounds JSON request bodies. Large payloads here are
// always a client bug; permission batches are small.
const maxBodyBytes = 1 << 20

// DecodeJSON decodes the request body into dst, rejecting unknown
// fields and oversized bodies.
func DecodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return ErrBodyTooLarge
		}
		return err
	}
	return nil
}
