package server

import (
	"net/http"

	"analyst/internal/api/dto"
	"analyst/internal/auth"
	"analyst/internal/database"
	"analyst/internal/domain"
)

const insufficientPrivileges = "Insufficient privileges for operation."

// targetUser loads the {username} path value. Names that could never be
// stored are reported as missing.
func (s *Server) targetUser(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	username, err := domain.NormalizeUsername(r.PathValue("username"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Not Found", "")
		return domain.User{}, false
	}

	user, err := s.users.GetByUsername(r.Context(), username)
	if err != nil {
		writeFailure(w, r, err)
		return domain.User{}, false
	}
	return user, true
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	if !auth.IsAdmin(caller(r)) {
		writeForbidden(w, insufficientPrivileges)
		return
	}

	users, err := s.users.List(r.Context())
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.UsersResponse{Users: dto.FromUsers(users)})
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	if !auth.IsAdmin(caller(r)) {
		writeForbidden(w, insufficientPrivileges)
		return
	}

	var req dto.UserCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "Invalid request body.")
		return
	}
	if req.Username == nil || req.Password == nil {
		writeBadRequest(w, "Operation requires username and password.")
		return
	}

	input := database.NewUser{
		Username: *req.Username,
		Password: *req.Password,
		IsActive: true,
	}
	if req.IsAdmin != nil {
		input.IsAdmin = *req.IsAdmin
	}
	if req.IsManager != nil {
		input.IsManager = *req.IsManager
	}
	if req.IsActive != nil {
		input.IsActive = *req.IsActive
	}

	if _, err := s.users.Create(r.Context(), input); err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.Success("New user created."))
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	target, ok := s.targetUser(w, r)
	if !ok {
		return
	}
	if !auth.IsAdminOrSelf(caller(r), target) {
		writeForbidden(w, insufficientPrivileges)
		return
	}

	writeJSON(w, http.StatusOK, dto.UserResponse{User: dto.FromUser(target)})
}

// updateUser lets admins edit anyone and users edit their own password.
// Nobody may change their own flags.
func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	target, ok := s.targetUser(w, r)
	if !ok {
		return
	}
	current := caller(r)
	if !auth.IsAdminOrSelf(current, target) {
		writeForbidden(w, insufficientPrivileges)
		return
	}

	var req dto.UserUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "Invalid request body.")
		return
	}

	patch := database.UserPatch{
		Password:  req.Password,
		IsAdmin:   req.IsAdmin,
		IsManager: req.IsManager,
		IsActive:  req.IsActive,
	}
	if auth.IsSelf(current, target) && patch.ChangesFlags() {
		writeForbidden(w, "Can not modify own attributes.")
		return
	}

	updated, err := s.users.Update(r.Context(), target.ID, patch)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.UserResponse{User: dto.FromUser(updated)})
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	current := caller(r)
	if !auth.IsAdmin(current) {
		writeForbidden(w, insufficientPrivileges)
		return
	}

	target, ok := s.targetUser(w, r)
	if !ok {
		return
	}
	if auth.IsSelf(current, target) {
		writeBadRequest(w, "Can not delete self.")
		return
	}

	if err := s.users.Delete(r.Context(), target.ID); err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.Success("User deleted."))
}
