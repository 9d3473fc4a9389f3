package database

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"analyst/internal/domain"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", name)

	db, err := Open(
		WithDialector(sqlite.Open(dsn)),
		WithLogger(logger.Default.LogMode(logger.Silent)),
		WithMaxOpenConns(1),
	)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	t.Cleanup(func() {
		_ = Close(db)
	})

	return db
}

func createTestUser(t *testing.T, repo *UserRepository, username string, admin bool) domain.User {
	t.Helper()

	user, err := repo.Create(t.Context(), NewUser{
		Username: username,
		Password: "test-password",
		IsAdmin:  admin,
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func createTestList(t *testing.T, repo *IPListRepository, name string, owner domain.User) domain.IPList {
	t.Helper()

	list, err := repo.Create(t.Context(), name, nil, owner)
	if err != nil {
		t.Fatalf("create list %s: %v", name, err)
	}
	return list
}
