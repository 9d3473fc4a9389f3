package server

import (
	"net/http"

	"analyst/internal/api/dto"
	"analyst/internal/auth"
)

func (s *Server) getToken(w http.ResponseWriter, r *http.Request) {
	target, ok := s.targetUser(w, r)
	if !ok {
		return
	}
	if !auth.IsAdminOrSelf(caller(r), target) {
		writeForbidden(w, insufficientPrivileges)
		return
	}

	writeJSON(w, http.StatusOK, dto.TokenResponse{Token: target.Token})
}

// rotateToken issues a new token; the previous one stops working at once.
func (s *Server) rotateToken(w http.ResponseWriter, r *http.Request) {
	target, ok := s.targetUser(w, r)
	if !ok {
		return
	}
	if !auth.IsAdminOrSelf(caller(r), target) {
		writeForbidden(w, insufficientPrivileges)
		return
	}

	token, err := s.users.RotateToken(r.Context(), target.ID)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TokenResponse{Token: token})
}
