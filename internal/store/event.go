package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Event is one journal entry.
type Event struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Gesture   string    `json:"gesture,omitempty"`
	Command   string    `json:"command"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EventRepository reads and appends journal entries.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Create appends e, assigning an ID and timestamp when unset.
func (r *EventRepository) Create(ctx context.Context, e *Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO events (id, source, gesture, command, outcome, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Source, e.Gesture, e.Command, e.Outcome, e.Error, e.CreatedAt,
	)
	return err
}

// GetByID retrieves an event by its ID.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*Event, error) {
	e := &Event{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, source, gesture, command, outcome, error, created_at
		 FROM events WHERE id = ?`,
		id,
	).Scan(&e.ID, &e.Source, &e.Gesture, &e.Command, &e.Outcome, &e.Error, &e.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// Recent returns up to limit events, newest first.
func (r *EventRepository) Recent(ctx context.Context, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, source, gesture, command, outcome, error, created_at
		 FROM events ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		e := &Event{}
		if err := rows.Scan(&e.ID, &e.Source, &e.Gesture, &e.Command, &e.Outcome, &e.Error, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Count returns the number of stored events.
func (r *EventRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}

// Prune deletes all but the newest keep events and returns how many were removed.
func (r *EventRepository) Prune(ctx context.Context, keep int) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM events WHERE rowid NOT IN (
			SELECT rowid FROM events ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`,
		keep,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
