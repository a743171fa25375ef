// ABOUTME: Database connection management and initialization
// ABOUTME: Opens SQLite with WAL mode and applies the embedded goose migrations
package db

import (
	"context"
	"database/sql"
	"embed"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func init() {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		panic(err)
	}
}

// OpenDatabase opens (creating if needed) the SQLite file at path and
// migrates it to the latest schema.
func OpenDatabase(path string) (*sql.DB, error) {
	db, err := Connect(path)
	if err != nil {
		return nil, err
	}

	if err := Migrate(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Connect opens the SQLite file at path without touching the schema.
func Connect(path string) (*sql.DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	// Configure connection pool for SQLite (avoid database locked errors)
	db.SetMaxOpenConns(1)
	return db, nil
}

// Migrate applies every pending migration.
func Migrate(ctx context.Context, db *sql.DB) error {
	return goose.UpContext(ctx, db, "migrations")
}

// Rollback reverts the most recent migration.
func Rollback(ctx context.Context, db *sql.DB) error {
	return goose.DownContext(ctx, db, "migrations")
}

// SchemaVersion reports the current migration version.
func SchemaVersion(ctx context.Context, db *sql.DB) (int64, error) {
	return goose.GetDBVersionContext(ctx, db)
}

// LatestVersion is the version of the newest embedded migration.
func LatestVersion() (int64, error) {
	migrations, err := goose.CollectMigrations("migrations", 0, goose.MaxVersion)
	if err != nil {
		return 0, err
	}
	last, err := migrations.Last()
	if err != nil {
		return 0, err
	}
	return last.Version, nil
}
