package http

import (
	"net/http"

	"fintrack/internal/log"
	"fintrack/internal/services"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, log.OpRegister, err)
		return
	}

	u, err := s.auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, log.OpRegister, err)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "User registered", log.FieldUserID, u.ID, "role", u.Role)
	NewJSONResponse().Status(http.StatusCreated).Data(u).Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, log.OpLogin, err)
		return
	}

	res, err := s.auth.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, r, log.OpLogin, err)
		return
	}
	NewJSONResponse().Data(res).Write(w)
}
