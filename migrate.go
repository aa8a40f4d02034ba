package main

import (
	"database/sql"
	"fmt"

	"github.com/amirphl/telecall/migrations"
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Apply, roll back, and inspect the embedded PostgreSQL migrations.`,
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSQLDB(func(rt *runtime, db *sql.DB) error {
				return migrations.Down(db, steps, rt.logger)
			})
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Run all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSQLDB(func(rt *runtime, db *sql.DB) error {
					return migrations.Up(db, rt.logger)
				})
			},
		},
		down,
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSQLDB(func(rt *runtime, db *sql.DB) error {
					if err := migrations.Status(db); err != nil {
						return err
					}
					version, err := migrations.Version(db)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "current version: %d\n", version)
					return nil
				})
			},
		},
	)

	return cmd
}

// withSQLDB loads configuration, opens the database, and hands fn the raw connection
func withSQLDB(fn func(rt *runtime, db *sql.DB) error) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	db, err := initializeDatabase(rt.cfg.Database, rt.logger)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return fn(rt, sqlDB)
}
