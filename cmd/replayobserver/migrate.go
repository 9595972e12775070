package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/replay-observer/internal/infrastructure/database"
)

type migrateOptions struct {
	down   bool
	status bool
}

func newMigrateCmd() *cobra.Command {
	var opts migrateOptions

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back journal schema migrations",
		Long: `Migrate applies pending journal migrations and prints the result.
With --down it rolls back the most recent migration instead; with --status
it changes nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.down, "down", false, "roll back the most recent migration")
	cmd.Flags().BoolVar(&opts.status, "status", false, "only list applied and pending migrations")
	cmd.MarkFlagsMutuallyExclusive("down", "status")
	return cmd
}

func runMigrate(ctx context.Context, opts migrateOptions, out io.Writer) error {
	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.Journal)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing journal", "error", closeErr)
		}
	}()

	switch {
	case opts.down:
		if err := db.MigrateDown(ctx); err != nil {
			return fmt.Errorf("rolling back migration: %w", err)
		}
		log.Info("migration rolled back", "path", db.Path())
	case !opts.status:
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
	}

	return printMigrationStatus(ctx, db, out)
}

func printMigrationStatus(ctx context.Context, db *database.DB, out io.Writer) error {
	applied, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}

	fmt.Fprintf(out, "Journal: %s\n", db.Path())
	for _, r := range applied {
		fmt.Fprintf(out, "  applied  %s  %s\n", r.Version, r.AppliedAt.Local().Format(time.DateTime))
	}
	for _, m := range pending {
		fmt.Fprintf(out, "  pending  %s  %s\n", m.Version, m.Name)
	}
	return nil
}
