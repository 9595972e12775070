// Package journal records one row per bridge run in the replay_sessions
// table, so past publishes can be listed after the process exits.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/replay-observer/internal/observer"
)

const (
	defaultListLimit = 20
	maxListLimit     = 500

	// timeLayout is fixed width and always UTC, so text order in SQLite
	// matches time order.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// ErrNotFound is returned by Get for an unknown session ID.
var ErrNotFound = errors.New("journal: session not found")

// Session is one bridge run: which replay was published where, how it
// ended and what the bridge counted.
type Session struct {
	ID          string         `json:"id"`
	Source      string         `json:"source"`
	Topic       string         `json:"topic"`
	ClientID    string         `json:"client_id,omitempty"`
	EventType   string         `json:"event_type,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	EndedAt     *time.Time     `json:"ended_at,omitempty"`
	Termination string         `json:"termination,omitempty"`
	Cause       string         `json:"cause,omitempty"`
	Stats       observer.Stats `json:"stats"`
}

// Repository defines the journal operations.
type Repository interface {
	Begin(ctx context.Context, s *Session) error
	End(ctx context.Context, id string, termination observer.Termination, cause error, stats observer.Stats) error
	Get(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context, limit int) ([]Session, error)
}

// SQLiteRepository stores sessions in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

// NewSQLiteRepository creates a journal over an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Begin inserts a new session. ID and StartedAt are generated if empty.
func (r *SQLiteRepository) Begin(ctx context.Context, s *Session) error {
	if s.ID == "" {
		s.ID = "ses-" + uuid.NewString()[:8]
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO replay_sessions (id, source, topic, client_id, event_type, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.Source, s.Topic, s.ClientID, s.EventType,
		formatTime(s.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// End records how a session finished. cause may be nil.
func (r *SQLiteRepository) End(ctx context.Context, id string, termination observer.Termination, cause error, stats observer.Stats) error {
	causeText := ""
	if cause != nil {
		causeText = cause.Error()
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE replay_sessions
		 SET ended_at = ?, termination = ?, cause = ?, published = ?, dropped = ?, failed = ?
		 WHERE id = ?`,
		formatTime(time.Now()),
		string(termination), causeText,
		stats.Published, stats.Dropped, stats.Failed,
		id,
	)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns one session by ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, selectSessions+" WHERE id = ?", id)

	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// List returns the most recent sessions first. A limit of zero or less
// uses the default; large limits are clamped.
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := r.db.QueryContext(ctx, selectSessions+" ORDER BY started_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

const selectSessions = `SELECT id, source, topic, client_id, event_type, started_at, ended_at,
	termination, cause, published, dropped, failed FROM replay_sessions`

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var s Session
	var startedAt string
	var endedAt sql.NullString
	var published, dropped, failed int64

	if err := row.Scan(&s.ID, &s.Source, &s.Topic, &s.ClientID, &s.EventType,
		&startedAt, &endedAt, &s.Termination, &s.Cause,
		&published, &dropped, &failed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing session start %q: %w", startedAt, err)
	}
	s.StartedAt = t

	if endedAt.Valid && endedAt.String != "" {
		t, err := time.Parse(time.RFC3339Nano, endedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing session end %q: %w", endedAt.String, err)
		}
		s.EndedAt = &t
	}

	// #nosec G115 -- columns are written from uint64 counters
	s.Stats = observer.Stats{
		Published: uint64(published),
		Dropped:   uint64(dropped),
		Failed:    uint64(failed),
	}
	return &s, nil
}
