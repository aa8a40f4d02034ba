// Package migrations embeds the PostgreSQL schema and applies it with goose
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var files embed.FS

const dir = "sql"

func setup() error {
	goose.SetBaseFS(files)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return nil
}

// Up applies every pending migration
func Up(db *sql.DB, logger *slog.Logger) error {
	if err := setup(); err != nil {
		return err
	}

	from, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	to, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get final version: %w", err)
	}

	logger.Info("migration completed", "from_version", from, "to_version", to)
	return nil
}

// Down rolls back the given number of migrations
func Down(db *sql.DB, steps int, logger *slog.Logger) error {
	if err := setup(); err != nil {
		return err
	}

	for i := 0; i < steps; i++ {
		if err := goose.Down(db, dir); err != nil {
			return fmt.Errorf("failed to run down migration: %w", err)
		}
	}

	logger.Info("down migration completed", "steps", steps)
	return nil
}

// Status prints the applied state of every migration through goose's logger
func Status(db *sql.DB) error {
	if err := setup(); err != nil {
		return err
	}
	if err := goose.Status(db, dir); err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	return nil
}

// Version returns the current schema version
func Version(db *sql.DB) (int64, error) {
	if err := setup(); err != nil {
		return 0, err
	}
	version, err := goose.GetDBVersion(db)
	if err != nil {
		return 0, fmt.Errorf("failed to get version: %w", err)
	}
	return version, nil
}
