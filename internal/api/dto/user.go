package dto

import "analyst/internal/domain"

// InitRequest creates the first admin account.
type InitRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type InitResponse struct {
	Status  string `json:"status"`
	Token   string `json:"token"`
	Message string `json:"message"`
}

// UserCreateRequest only binds the fields an admin may set, so unknown keys
// never reach the store.
type UserCreateRequest struct {
	Username  *string `json:"username"`
	Password  *string `json:"password"`
	IsAdmin   *bool   `json:"is_admin"`
	IsManager *bool   `json:"is_manager"`
	IsActive  *bool   `json:"is_active"`
}

type UserUpdateRequest struct {
	Password  *string `json:"password"`
	IsAdmin   *bool   `json:"is_admin"`
	IsManager *bool   `json:"is_manager"`
	IsActive  *bool   `json:"is_active"`
}

type User struct {
	Username  string    `json:"username"`
	IsActive  bool      `json:"is_active"`
	IsAdmin   bool      `json:"is_admin"`
	IsManager bool      `json:"is_manager"`
	CreatedOn Timestamp `json:"created_on"`
}

type UserResponse struct {
	User User `json:"user"`
}

type UsersResponse struct {
	Users []User `json:"users"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

func FromUser(u domain.User) User {
	return User{
		Username:  u.Username,
		IsActive:  u.IsActive,
		IsAdmin:   u.IsAdmin,
		IsManager: u.IsManager,
		CreatedOn: Timestamp(u.CreatedOn),
	}
}

func FromUsers(users []domain.User) []User {
	out := make([]User, 0, len(users))
	for _, u := range users {
		out = append(out, FromUser(u))
	}
	return out
}
