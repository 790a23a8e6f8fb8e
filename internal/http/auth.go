package http

import (
	"context"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

type contextKey string

const identityKey contextKey = "identity"

// IdentityFromContext returns the caller resolved by requireAuth.
func IdentityFromContext(ctx context.Context) (core.Identity, bool) {
	id, ok := ctx.Value(identityKey).(core.Identity)
	return id, ok
}

// requireAuth resolves the bearer token to an identity or answers 401.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := s.auth.VerifyToken(r.Context(), bearerToken(r))
		if err != nil {
			writeError(w, r, log.OpVerify, err)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, id)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, id.UserID))
		next(w, r.WithContext(ctx))
	}
}

// requireAdmin is requireAuth plus a role check answering 403.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		id, _ := IdentityFromContext(r.Context())
		if err := s.auth.RequireAdmin(r.Context(), id); err != nil {
			writeError(w, r, log.OpVerify, err)
			return
		}
		next(w, r)
	})
}

// identity returns the caller; handlers behind requireAuth always have one.
func identity(r *http.Request) core.Identity {
	id, _ := IdentityFromContext(r.Context())
	return id
}
