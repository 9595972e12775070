package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/replay-observer/internal/journal"
)

func newSessionsCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded publish runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSessions(cmd.Context(), limit, asJSON, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of sessions to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print sessions as JSON")
	return cmd
}

func runSessions(ctx context.Context, limit int, asJSON bool, out io.Writer) error {
	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}

	db, err := openJournal(ctx, cfg.Journal)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing journal", "error", closeErr)
		}
	}()

	sessions, err := journal.NewSQLiteRepository(db.DB).List(ctx, limit)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sessions)
	}
	return printSessions(out, sessions)
}

func printSessions(out io.Writer, sessions []journal.Session) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(out, "No sessions recorded.")
		return err
	}

	const row = "  %-12s  %-20s  %-30s  %-12s  %9s  %7s  %6s\n"
	fmt.Fprintf(out, row, "ID", "STARTED", "TOPIC", "ENDED", "PUBLISHED", "DROPPED", "FAILED")
	for _, s := range sessions {
		ended := "running"
		if s.EndedAt != nil {
			ended = s.Termination
		}
		fmt.Fprintf(out, row,
			s.ID,
			s.StartedAt.Local().Format(time.DateTime),
			s.Topic,
			ended,
			fmt.Sprint(s.Stats.Published),
			fmt.Sprint(s.Stats.Dropped),
			fmt.Sprint(s.Stats.Failed),
		)
	}
	return nil
}
