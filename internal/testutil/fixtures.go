package testutil

import (
	"context"
	"database/sql"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"thesis-eval/internal/models"
	"thesis-eval/internal/repository"
)

// TestPassword is the password of every fixture user
const TestPassword = "password123"

// Fixtures holds test data
type Fixtures struct {
	DB       *sql.DB
	Admin    *models.User
	Staff    *models.User
	Staff2   *models.User
	Student  *models.User
	Student2 *models.User
}

// SetupFixtures creates one user per role plus a second staff member and student
func SetupFixtures(t *testing.T, db *sql.DB) *Fixtures {
	t.Helper()

	return &Fixtures{
		DB:       db,
		Admin:    CreateUser(t, db, "admin@test.com", "Ada Admin", models.RoleAdmin, models.RoleStaff),
		Staff:    CreateUser(t, db, "staff@test.com", "Sam Staff", models.RoleStaff),
		Staff2:   CreateUser(t, db, "staff2@test.com", "Sky Staff", models.RoleStaff),
		Student:  CreateUser(t, db, "student@test.com", "Stu Dent", models.RoleStudent),
		Student2: CreateUser(t, db, "student2@test.com", "Stella Dent", models.RoleStudent),
	}
}

// CreateUser inserts an active user with TestPassword and the given roles
func CreateUser(t *testing.T, db *sql.DB, email, fullName string, roles ...string) *models.User {
	t.Helper()
	ctx := context.Background()

	// MinCost keeps container tests fast
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	users := repository.NewUserRepository(db)
	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     fullName,
		IsActive:     true,
	}
	if err := users.Create(ctx, user); err != nil {
		t.Fatalf("Failed to create user %s: %v", email, err)
	}

	for _, role := range roles {
		if err := users.AssignRole(ctx, user.ID, role); err != nil {
			t.Fatalf("Failed to assign role %s to %s: %v", role, email, err)
		}
	}

	return user
}
