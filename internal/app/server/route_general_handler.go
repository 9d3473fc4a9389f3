package server

import (
	"net/http"
	"strings"

	"analyst/internal/api/dto"
	"analyst/internal/app/version"
)

func (s *Server) getVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, version.Get(s.apiVersion))
}

// initApp creates the first admin. It is the only unauthenticated mutation
// and refuses once any admin exists.
func (s *Server) initApp(w http.ResponseWriter, r *http.Request) {
	var req dto.InitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "Invalid request body.")
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeBadRequest(w, "Operation requires username and password.")
		return
	}

	user, err := s.users.InitAdmin(r.Context(), req.Username, req.Password)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.InitResponse{
		Status:  "Success",
		Token:   user.Token,
		Message: "First admin user created.",
	})
}
