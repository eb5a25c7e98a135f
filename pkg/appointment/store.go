// Package appointment is the persistence hook behind
// orchestrator.AppointmentPersister, backing the fetchAppointment /
// updateAppointmentStatus tool-surface operations (spec.md §6). Grounded on
// the sqlite store shape in the retrieval pack (pkg/evals/store.go:
// modernc.org/sqlite, schema-on-open, context-scoped *sql.DB calls).
package appointment

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Status is the outcome recorded against an appointment by
// updateAppointmentStatus (spec.md §6).
type Status string

const (
	StatusPending              Status = "PENDING"
	StatusInProgress           Status = "IN_PROGRESS"
	StatusFailedTechError      Status = "FAILED:TECH_ERROR"
	StatusFailedBusinessClosed Status = "FAILED:BUSINESS_CLOSED"
	StatusFailedHumanError     Status = "FAILED:HUMAN_ERROR"
	StatusFailedNoSlots        Status = "FAILED:NO_AVAILABLE_SLOTS"
	StatusSuccess              Status = "SUCCESS"
)

// Appointment is one row of the appointment record fetched by fetchAppointment
// and mutated by updateAppointment (spec.md §6 persistence hook).
type Appointment struct {
	ID          string
	UserProfile string
	Status      Status
	Notes       string
	UpdatedAt   time.Time
}

// Store is the sqlite-backed appointment persistence hook. It satisfies
// orchestrator.AppointmentPersister.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the sqlite database at path and ensures
// its schema. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("appointment: open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS appointments (
		id           TEXT PRIMARY KEY,
		user_profile TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL DEFAULT 'PENDING',
		notes        TEXT NOT NULL DEFAULT '',
		updated_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("appointment: init schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// Seed inserts or replaces an appointment row, used by the Appointment
// Dispatcher external collaborator when a new booking is created (spec.md
// §6: subscribeAppointmentChanges triggers an outbound call referencing
// this id).
func (s *Store) Seed(ctx context.Context, a Appointment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO appointments (id, user_profile, status, notes, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_profile = excluded.user_profile,
			status       = excluded.status,
			notes        = excluded.notes,
			updated_at   = excluded.updated_at
	`, a.ID, a.UserProfile, string(a.Status), a.Notes, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("appointment: seed %s: %w", a.ID, err)
	}
	return nil
}

// FetchAppointment returns the appointment record bound to id (id, user
// profile, status, notes, last update), satisfying
// orchestrator.AppointmentPersister. The record is returned as a JSON
// string so the LLM Stream Driver can fold it into tool-result content
// without the persistence layer knowing anything about prompt shape.
func (s *Store) FetchAppointment(ctx context.Context, id string) (string, error) {
	var a Appointment
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_profile, status, notes, updated_at FROM appointments WHERE id = ?
	`, id).Scan(&a.ID, &a.UserProfile, &status, &a.Notes, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("appointment: %s not found", id)
	}
	if err != nil {
		return "", fmt.Errorf("appointment: fetch %s: %w", id, err)
	}
	a.Status = Status(status)

	payload, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("appointment: marshal %s: %w", id, err)
	}
	return string(payload), nil
}

// UpdateAppointmentStatus persists the outcome status bound to id (notes
// are left unchanged), satisfying orchestrator.AppointmentPersister. An
// error is returned to the caller; nothing is retained or retried here.
func (s *Store) UpdateAppointmentStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE appointments SET status = ?, updated_at = ? WHERE id = ?
	`, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("appointment: update %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("appointment: rows affected %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("appointment: %s not found", id)
	}
	return nil
}
