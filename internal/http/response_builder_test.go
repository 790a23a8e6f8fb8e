package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fintrack/internal/core"
)

func TestJSONResponseBuilder(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Test", "1").
		Data(map[string]int{"id": 7}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); !strings.HasPrefix(got, "application/json") {
		t.Errorf("content type = %q", got)
	}
	if w.Header().Get("X-Test") != "1" {
		t.Error("custom header missing")
	}
	if strings.TrimSpace(w.Body.String()) != `{"id":7}` {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestJSONResponseBuilder_NoContent(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Data("ignored").Write(w)

	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Errorf("got %d %q", w.Code, w.Body.String())
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		body string
	}{
		{"validation", core.NewValidationError("email", "Invalid email address"), http.StatusBadRequest, `{"error":"Invalid email address","field":"email"}`},
		{"wrapped validation", fmt.Errorf("register: %w", core.NewValidationError("role", "bad")), http.StatusBadRequest, `{"error":"bad","field":"role"}`},
		{"credentials", core.ErrInvalidCredentials, http.StatusUnauthorized, `{"error":"invalid credentials"}`},
		{"token", fmt.Errorf("%w: expired", core.ErrInvalidToken), http.StatusUnauthorized, `{"error":"unauthorized"}`},
		{"forbidden", core.ErrForbidden, http.StatusForbidden, `{"error":"forbidden"}`},
		{"not found", core.NotFound("transaction", 3), http.StatusNotFound, `{"error":"transaction 3: not found"}`},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError, `{"error":"internal server error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ErrorResponse(tt.err).Write(w)
			if w.Code != tt.code {
				t.Errorf("status = %d, want %d", w.Code, tt.code)
			}
			if got := strings.TrimSpace(w.Body.String()); got != tt.body {
				t.Errorf("body = %s, want %s", got, tt.body)
			}
		})
	}
}

func TestErrorResponse_UnauthorizedChallenge(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorResponse(core.ErrInvalidToken).Write(w)
	if w.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate header")
	}
}
