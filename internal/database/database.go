// Package database handles connection management and migration execution
// using goose. PostgreSQL is the production backend; SQLite serves single
// node installs and tests.
package database

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var embedMigrations embed.FS

// Driver selects the SQL backend.
type Driver string

const (
	Postgres Driver = "postgres"
	SQLite   Driver = "sqlite"
)

// ParseDriver validates a configured driver name.
func ParseDriver(name string) (Driver, error) {
	switch d := Driver(name); d {
	case Postgres, SQLite:
		return d, nil
	default:
		return "", fmt.Errorf("unknown database driver %q (want postgres or sqlite)", name)
	}
}

var placeholder = regexp.MustCompile(`\$(\d+)`)

// Rebind rewrites $N placeholders for the driver. Queries in this module are
// written with PostgreSQL placeholders; SQLite receives ?N.
func (d Driver) Rebind(query string) string {
	if d != SQLite {
		return query
	}
	return placeholder.ReplaceAllString(query, "?$1")
}

// SQLiteDSN builds a modernc.org/sqlite DSN for a database file with WAL
// journaling, a busy timeout, and foreign keys enabled.
func SQLiteDSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "foreign_keys(1)")
	return "file:" + path + "?" + q.Encode()
}

// Connect opens a connection pool for the driver and verifies it with a
// ping before returning.
func Connect(driver Driver, dsn string) (*sql.DB, error) {
	name := "pgx"
	if driver == SQLite {
		name = "sqlite"
	}

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("database open: %w", err)
	}

	if driver == SQLite {
		// One writer at a time; WAL keeps readers unblocked.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping: %w", err)
	}

	slog.Info("database connected", "driver", string(driver))
	return db, nil
}

// Migrate runs all pending goose migrations for the driver from the
// embedded SQL files.
func Migrate(db *sql.DB, driver Driver) error {
	goose.SetBaseFS(embedMigrations)
	defer goose.SetBaseFS(nil)

	dialect := "postgres"
	if driver == SQLite {
		dialect = "sqlite3"
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}

	if err := goose.Up(db, "migrations/"+string(driver)); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	slog.Info("database migrations applied", "driver", string(driver))
	return nil
}
