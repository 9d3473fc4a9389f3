package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"analyst/internal/domain"
	"analyst/internal/security"
)

// NewUser carries the fields accepted when creating an account.
type NewUser struct {
	Username  string
	Password  string
	IsAdmin   bool
	IsManager bool
	IsActive  bool
}

// UserPatch holds optional changes; nil fields stay untouched.
type UserPatch struct {
	Password  *string
	IsAdmin   *bool
	IsManager *bool
	IsActive  *bool
}

func (p UserPatch) ChangesFlags() bool {
	return p.IsAdmin != nil || p.IsManager != nil || p.IsActive != nil
}

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create stores a new user with a hashed password and a fresh token.
func (r *UserRepository) Create(ctx context.Context, input NewUser) (domain.User, error) {
	return createUser(r.db.WithContext(ctx), input)
}

// InitAdmin creates the first admin. It fails with ErrAlreadyInitialized once
// any admin exists.
func (r *UserRepository) InitAdmin(ctx context.Context, username, password string) (domain.User, error) {
	var created domain.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var admins int64
		if err := tx.Model(&domain.User{}).Where("is_admin = ?", true).Count(&admins).Error; err != nil {
			return err
		}
		if admins > 0 {
			return ErrAlreadyInitialized
		}

		user, err := createUser(tx, NewUser{
			Username: username,
			Password: password,
			IsAdmin:  true,
			IsActive: true,
		})
		if err != nil {
			return err
		}
		created = user
		return nil
	})
	return created, err
}

func createUser(tx *gorm.DB, input NewUser) (domain.User, error) {
	username, err := domain.NormalizeUsername(input.Username)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	hashed, err := security.HashPassword(input.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	token, err := security.GenerateToken()
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		Username:  username,
		Token:     token,
		Password:  &hashed,
		IsActive:  input.IsActive,
		IsAdmin:   input.IsAdmin,
		IsManager: input.IsManager,
	}

	if err := tx.Create(&user).Error; err != nil {
		return domain.User{}, fmt.Errorf("create user %s: %w", username, translateError(err))
	}

	return user, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Where("username = ?", strings.ToLower(strings.TrimSpace(username))).
		First(&user).Error
	if err != nil {
		return domain.User{}, translateError(err)
	}
	return user, nil
}

// GetByToken returns the active user owning token.
func (r *UserRepository) GetByToken(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, ErrNotFound
	}

	var user domain.User
	err := r.db.WithContext(ctx).
		Where("token = ? AND is_active = ?", token, true).
		First(&user).Error
	if err != nil {
		return domain.User{}, translateError(err)
	}
	return user, nil
}

// GetByBasicAuth returns the active user with username whose password verifies.
// A wrong password reports ErrNotFound, the same as an unknown user.
func (r *UserRepository) GetByBasicAuth(ctx context.Context, username, password string) (domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Where("username = ? AND is_active = ?", strings.ToLower(strings.TrimSpace(username)), true).
		First(&user).Error
	if err != nil {
		return domain.User{}, translateError(err)
	}

	if user.Password == nil || !security.CheckPasswordHash(password, *user.Password) {
		return domain.User{}, ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := r.db.WithContext(ctx).Order("username ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Where("is_admin = ?", true).Count(&count).Error
	return count, err
}

// Update applies patch to the user with id and returns the stored row.
func (r *UserRepository) Update(ctx context.Context, id uint, patch UserPatch) (domain.User, error) {
	updates := map[string]any{}

	if patch.Password != nil {
		hashed, err := security.HashPassword(*patch.Password)
		if err != nil {
			return domain.User{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		updates["password"] = hashed
	}
	if patch.IsAdmin != nil {
		updates["is_admin"] = *patch.IsAdmin
	}
	if patch.IsManager != nil {
		updates["is_manager"] = *patch.IsManager
	}
	if patch.IsActive != nil {
		updates["is_active"] = *patch.IsActive
	}

	var user domain.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			return translateError(err)
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return translateError(err)
		}
		return tx.First(&user, id).Error
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// RotateToken replaces the user's token and returns the new one.
func (r *UserRepository) RotateToken(ctx context.Context, id uint) (string, error) {
	token, err := security.GenerateToken()
	if err != nil {
		return "", err
	}

	result := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("token", token)
	if result.Error != nil {
		return "", translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return "", ErrNotFound
	}
	return token, nil
}

// Delete removes the user. Users still referenced by lists or memberships
// are kept and ErrConflict is returned.
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lists, memberships int64
		if err := tx.Model(&domain.IPList{}).Where("created_by_id = ?", id).Count(&lists).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.IPListItem{}).Where("added_by_id = ?", id).Count(&memberships).Error; err != nil {
			return err
		}
		if lists > 0 || memberships > 0 {
			return fmt.Errorf("%w: user owns %d lists and added %d list items", ErrConflict, lists, memberships)
		}

		result := tx.Delete(&domain.User{}, id)
		if result.Error != nil {
			return translateError(result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// IsNotFound reports whether err is a missing-record error from this package.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
