package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/vault"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/lib/pq"

	"thesis-eval/internal/config"
	"thesis-eval/internal/database"
)

// JWTSecret is the signing secret shared by test servers and AuthHelper
const JWTSecret = "test-secret-key-for-testing-only"

// TestContainers holds references to test containers
type TestContainers struct {
	PostgresContainer *postgres.PostgresContainer
	VaultContainer    *vault.VaultContainer
	DB                *sql.DB
	DBConnString      string
	VaultToken        string
	VaultAddr         string
}

// SetupPostgres starts a PostgreSQL container and applies all migrations.
// Tests using it are skipped under -short.
func SetupPostgres(t *testing.T) *TestContainers {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:18",
		postgres.WithDatabase("thesis_test"),
		postgres.WithUsername("thesis_test"),
		postgres.WithPassword("thesis_test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	tc := &TestContainers{PostgresContainer: postgresContainer}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		tc.Cleanup(t)
		t.Fatalf("Failed to get connection string: %v", err)
	}
	tc.DBConnString = connStr

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		tc.Cleanup(t)
		t.Fatalf("Failed to connect to database: %v", err)
	}
	tc.DB = db

	if err := db.PingContext(ctx); err != nil {
		tc.Cleanup(t)
		t.Fatalf("Failed to ping database: %v", err)
	}

	if err := database.NewMigrationExecutor(db).RunMigrations(ctx, migrationsDir()); err != nil {
		tc.Cleanup(t)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return tc
}

// SetupTestContainers initializes PostgreSQL and Vault containers
func SetupTestContainers(t *testing.T) *TestContainers {
	t.Helper()
	tc := SetupPostgres(t)
	ctx := context.Background()

	vaultContainer, err := vault.Run(ctx,
		"hashicorp/vault:1.15",
		vault.WithToken("test-token"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("Vault server started!").
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		tc.Cleanup(t)
		t.Fatalf("Failed to start Vault container: %v", err)
	}
	tc.VaultContainer = vaultContainer

	vaultAddr, err := vaultContainer.HttpHostAddress(ctx)
	if err != nil {
		tc.Cleanup(t)
		t.Fatalf("Failed to get Vault address: %v", err)
	}
	tc.VaultToken = "test-token"
	tc.VaultAddr = vaultAddr

	return tc
}

// VaultConfig returns a transit configuration pointing at the test container
func (tc *TestContainers) VaultConfig() config.VaultConfig {
	return config.VaultConfig{
		Address:      tc.VaultAddr,
		Token:        tc.VaultToken,
		TransitMount: "transit",
		KeyName:      "student-answers-test",
		Enabled:      true,
	}
}

// Cleanup terminates all test containers
func (tc *TestContainers) Cleanup(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	if tc.DB != nil {
		_ = tc.DB.Close()
	}

	if tc.PostgresContainer != nil {
		if err := tc.PostgresContainer.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate PostgreSQL container: %v", err)
		}
	}

	if tc.VaultContainer != nil {
		if err := tc.VaultContainer.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate Vault container: %v", err)
		}
	}
}

// migrationsDir finds the migrations directory relative to the test package
func migrationsDir() string {
	candidates := []string{
		filepath.Join("..", "..", "migrations"),
		filepath.Join("..", "..", "..", "migrations"),
		"migrations",
	}
	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	panic(fmt.Sprintf("migrations directory not found, tried %v", candidates))
}
