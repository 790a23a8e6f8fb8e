// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for JSON responses and the single
// mapping from domain errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	data       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the response body.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.data = v
	return b
}

// Write sends the response. A 204 response never carries a body.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if b.statusCode == http.StatusNoContent || b.data == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// errorBody is the wire shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// ErrorResponse builds the response for err. Unexpected errors are reported
// with a generic message.
func ErrorResponse(err error) *JSONResponseBuilder {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		return NewJSONResponse().Status(http.StatusBadRequest).Data(errorBody{Error: ve.Message, Field: ve.Field})
	case errors.Is(err, core.ErrInvalidCredentials):
		return NewJSONResponse().Status(http.StatusUnauthorized).Data(errorBody{Error: "invalid credentials"})
	case errors.Is(err, core.ErrUnauthenticated):
		return NewJSONResponse().Status(http.StatusUnauthorized).
			Header("WWW-Authenticate", `Bearer realm="fintrack"`).
			Data(errorBody{Error: "unauthorized"})
	case errors.Is(err, core.ErrForbidden):
		return NewJSONResponse().Status(http.StatusForbidden).Data(errorBody{Error: "forbidden"})
	case errors.Is(err, core.ErrNotFound):
		return NewJSONResponse().Status(http.StatusNotFound).Data(errorBody{Error: err.Error()})
	default:
		return NewJSONResponse().Status(http.StatusInternalServerError).Data(errorBody{Error: "internal server error"})
	}
}

// writeError logs err with the request logger and writes its response.
func writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	resp := ErrorResponse(err)
	logger := log.FromContext(r.Context())

	if resp.statusCode >= http.StatusInternalServerError {
		log.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, log.ErrorTypeInternal, operation, nil)
	} else {
		logger.DebugContext(r.Context(), "Request rejected",
			log.FieldOperation, operation,
			log.FieldStatusCode, resp.statusCode,
			log.FieldError, err.Error())
	}
	resp.Write(w)
}
