// Package sqlite persists simulation runs in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ticket-simulator/models"
	"ticket-simulator/store"

	_ "github.com/mattn/go-sqlite3"
)

// Store is a SQLite-backed store.Sink.
type Store struct {
	db *sql.DB
}

var _ store.Sink = (*Store)(nil)

// New opens (creating if needed) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		size_profile TEXT NOT NULL,
		target_volume INTEGER NOT NULL,
		window_start TEXT NOT NULL,
		window_end TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tickets (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		id INTEGER NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		type TEXT NOT NULL,
		PRIMARY KEY (run_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_tickets_run_start ON tickets(run_id, start_time);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRun writes the run and all its tickets in one transaction.
func (s *Store) SaveRun(ctx context.Context, run store.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, seed, size_profile, target_volume, window_start, window_end, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Seed, run.SizeProfile, run.TargetVolume,
		run.WindowStart.Format(time.RFC3339Nano), run.WindowEnd.Format(time.RFC3339Nano),
		run.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tickets (run_id, id, start_time, end_time, type) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare ticket insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range run.Tickets {
		if _, err := stmt.ExecContext(ctx, run.ID, t.ID,
			t.StartTime.Format(time.RFC3339Nano), t.EndTime.Format(time.RFC3339Nano), string(t.Type)); err != nil {
			return fmt.Errorf("failed to insert ticket %d: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", run.ID, err)
	}
	return nil
}

// LoadTickets returns the tickets of a run ordered by start time.
func (s *Store) LoadTickets(ctx context.Context, runID string) ([]models.Ticket, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, start_time, end_time, type FROM tickets WHERE run_id = ? ORDER BY start_time, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var (
			t          models.Ticket
			start, end string
			typ        string
		)
		if err := rows.Scan(&t.ID, &start, &end, &typ); err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		if t.StartTime, err = time.Parse(time.RFC3339Nano, start); err != nil {
			return nil, fmt.Errorf("invalid start_time %q: %w", start, err)
		}
		if t.EndTime, err = time.Parse(time.RFC3339Nano, end); err != nil {
			return nil, fmt.Errorf("invalid end_time %q: %w", end, err)
		}
		t.Type = models.TicketType(typ)
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// CountTickets returns the number of tickets stored for a run.
func (s *Store) CountTickets(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}
