package http

import (
	"net/http"

	"fintrack/internal/log"
)

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Get(r.Context(), identity(r).UserID)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(u).Write(w)
}

func (s *Server) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := s.users.Delete(r.Context(), identity(r).UserID); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Data(users).Write(w)
}
