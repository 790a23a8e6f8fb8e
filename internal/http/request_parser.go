// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object from the request body into dst.
// Malformed bodies become validation errors; errors raised by a field's own
// decoder keep their field.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(dst); err != nil {
		var (
			ve        *core.ValidationError
			typeErr   *json.UnmarshalTypeError
			syntaxErr *json.SyntaxError
			tooLarge  *http.MaxBytesError
		)
		switch {
		case errors.As(err, &ve):
			return ve
		case errors.As(err, &typeErr):
			return core.NewValidationError(typeErr.Field, fmt.Sprintf("%s has the wrong type", typeErr.Field))
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return core.NewValidationError("", "Malformed JSON body")
		case errors.Is(err, io.EOF):
			return core.NewValidationError("", "Request body is required")
		case errors.As(err, &tooLarge):
			return core.NewValidationError("", "Request body too large")
		default:
			return core.NewValidationError("", "Invalid request body")
		}
	}
	if dec.More() {
		return core.NewValidationError("", "Request body must contain a single JSON object")
	}
	return nil
}

// pathID parses the named path segment as a positive id.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewValidationError(name, "Invalid id")
	}
	return id, nil
}

// ParseYear reads the "year" query parameter, defaulting to the current UTC
// year when absent.
func ParseYear(query url.Values, now time.Time) (int, error) {
	v := strings.TrimSpace(query.Get("year"))
	if v == "" {
		return now.UTC().Year(), nil
	}
	y, err := strconv.Atoi(v)
	if err != nil || y < 1 || y > 9999 {
		return 0, core.NewValidationError("year", "Year must be a number between 1 and 9999")
	}
	return y, nil
}

// bearerToken extracts the token from an "Authorization: Bearer" header.
func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
