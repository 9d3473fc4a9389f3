package auth

import "analyst/internal/domain"

func IsAdmin(caller domain.User) bool {
	return caller.IsAdmin
}

func IsAdminOrManager(caller domain.User) bool {
	return caller.IsAdmin || caller.IsManager
}

func IsSelf(caller, target domain.User) bool {
	return caller.ID != 0 && caller.ID == target.ID
}

func IsAdminOrSelf(caller, target domain.User) bool {
	return IsAdmin(caller) || IsSelf(caller, target)
}
