package database

import (
	"path/filepath"
	"testing"
)

func TestSeedIdempotent(t *testing.T) {
	db, err := Connect(SQLite, SQLiteDSN(filepath.Join(t.TempDir(), "seed.db")))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()

	if err := Migrate(db, SQLite); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	if err := Seed(db, SQLite, "Admin@Example.com", "admin"); err != nil {
		t.Fatalf("first Seed: %v", err)
	}
	if err := Seed(db, SQLite, "other@example.com", "admin"); err != nil {
		t.Fatalf("second Seed: %v", err)
	}

	var total, admins int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		t.Fatalf("count users: %v", err)
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM users WHERE email = 'admin@example.com'").Scan(&admins); err != nil {
		t.Fatalf("count admin users: %v", err)
	}
	if total != 1 || admins != 1 {
		t.Errorf("users: got total=%d admins=%d, want one seeded admin", total, admins)
	}
}
