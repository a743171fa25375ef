// ABOUTME: Migration utility for the SQLite record store
// ABOUTME: Applies or rolls back goose migrations with dry-run, backup, and optional seeding

package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/harperreed/pagen-admin/db"
	"github.com/harperreed/pagen-admin/store"
)

type options struct {
	dbPath string
	dryRun bool
	backup bool
	down   bool
	seed   bool
}

var logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

func main() {
	var opts options

	cmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply or roll back the SQLite record store schema",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := migrate(cmd.Context(), opts); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			logger.Info("Migration completed successfully")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.dbPath, "db", "", "Path to database file (required)")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Show what would happen without making changes")
	flags.BoolVar(&opts.backup, "backup", true, "Create backup before migration")
	flags.BoolVar(&opts.down, "down", false, "Roll back the most recent migration instead")
	flags.BoolVar(&opts.seed, "seed", false, "Import the bundled sample records after migrating")
	_ = cmd.MarkFlagRequired("db")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		logger.Fatal(err)
	}
}

func migrate(ctx context.Context, opts options) error {
	_, statErr := os.Stat(opts.dbPath)
	exists := statErr == nil
	if !exists && opts.down {
		return fmt.Errorf("database file does not exist: %s", opts.dbPath)
	}

	if opts.dryRun && !exists {
		logger.Printf("[DRY RUN] - Create %s and apply every migration", opts.dbPath)
		return nil
	}

	if opts.backup && exists && !opts.dryRun {
		backupPath := fmt.Sprintf("%s.backup.%s", opts.dbPath, time.Now().Format("20060102-150405"))
		logger.Printf("Creating backup: %s", backupPath)

		input, err := os.ReadFile(opts.dbPath)
		if err != nil {
			return fmt.Errorf("failed to read database: %w", err)
		}

		if err := os.WriteFile(backupPath, input, 0644); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
		logger.Printf("Backup created successfully")
	}

	database, err := db.Connect(opts.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = database.Close() }()

	current, err := db.SchemaVersion(ctx, database)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	latest, err := db.LatestVersion()
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	logger.Printf("Schema version %d (latest %d)", current, latest)

	if opts.dryRun {
		logger.Printf("[DRY RUN] Would perform the following actions:")
		switch {
		case opts.down && current > 0:
			logger.Printf("[DRY RUN] - Roll back migration %d", current)
		case opts.down:
			logger.Printf("[DRY RUN] - Nothing to roll back")
		case current < latest:
			logger.Printf("[DRY RUN] - Apply migrations %d through %d", current+1, latest)
		default:
			logger.Printf("[DRY RUN] - Schema is up to date")
		}
		if opts.seed && !opts.down {
			logger.Printf("[DRY RUN] - Import sample records")
		}
		return nil
	}

	if opts.down {
		if err := db.Rollback(ctx, database); err != nil {
			return fmt.Errorf("failed to roll back: %w", err)
		}
		logger.Printf("Rolled back migration %d", current)
		return nil
	}

	if err := db.Migrate(ctx, database); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	logger.Printf("Schema is at version %d", latest)

	if opts.seed {
		return seed(ctx, database)
	}
	return nil
}

func seed(ctx context.Context, database *sql.DB) error {
	fixtures, err := store.Fixtures()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(fixtures))
	for name := range fixtures {
		names = append(names, name)
	}
	sort.Strings(names)

	s := db.NewStore(database)
	for _, name := range names {
		n, err := s.Import(ctx, name, fixtures[name])
		if err != nil {
			return fmt.Errorf("failed to import %s: %w", name, err)
		}
		logger.Printf("Imported %d %s records", n, name)
	}
	return nil
}
