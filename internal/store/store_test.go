// store_test.go provides shared test database helpers for the store
// integration tests. Every test runs against a fresh SQLite file and, when
// one is reachable, against PostgreSQL.
package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"fanhub/internal/database"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "fanhub")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "fanhub")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a migrated database for driver. PostgreSQL tests are skipped
// if the server is unavailable. The connection is closed on cleanup.
func testDB(t *testing.T, driver database.Driver) *sql.DB {
	t.Helper()

	dsn := testDSN()
	if driver == database.SQLite {
		dsn = database.SQLiteDSN(filepath.Join(t.TempDir(), "store.db"))
	}

	db, err := database.Connect(driver, dsn)
	if err != nil {
		if driver == database.Postgres {
			t.Skipf("skipping integration test: DB not reachable: %v", err)
		}
		t.Fatalf("connect: %v", err)
	}

	if err := database.Migrate(db, driver); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// forEachDriver runs fn as a subtest per driver.
func forEachDriver(t *testing.T, fn func(t *testing.T, db *sql.DB, driver database.Driver)) {
	for _, d := range []database.Driver{database.SQLite, database.Postgres} {
		t.Run(string(d), func(t *testing.T) {
			fn(t, testDB(t, d), d)
		})
	}
}

// cleanUsers removes test users by email. Call in t.Cleanup().
func cleanUsers(t *testing.T, db *sql.DB, driver database.Driver, emails ...string) {
	t.Helper()
	for _, email := range emails {
		db.Exec(driver.Rebind("DELETE FROM users WHERE email = $1"), email)
	}
}

// cleanDocuments removes test documents by path. Call in t.Cleanup().
func cleanDocuments(t *testing.T, db *sql.DB, driver database.Driver, paths ...string) {
	t.Helper()
	for _, p := range paths {
		db.Exec(driver.Rebind("DELETE FROM documents WHERE path = $1"), p)
	}
}
