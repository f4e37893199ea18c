// Package store is the durable key-value persistence for session
// state: one row per exam, keyed "<namespace>:<examId>", the state
// itself kept as a JSON column. It also holds the imported copy of the
// exam catalog, the fallback source when no exams.json is on disk.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Namespace prefixes every session key.
const Namespace = "exam_progress"

// uploadedCatalogName keys the imported exams.json copy.
const uploadedCatalogName = "uploaded_exams_json"

// Store persists session state and the imported catalog in SQLite.
type Store struct {
	db *sql.DB
}

// New creates a Store on top of an opened, migrated database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Key returns the storage key for an exam's session record.
func Key(examID int) string {
	return fmt.Sprintf("%s:%d", Namespace, examID)
}

// GetState returns the raw persisted state for examID, or nil when no
// record exists.
func (s *Store) GetState(ctx context.Context, examID int) ([]byte, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT state_json FROM sessions WHERE key = ?`, Key(examID),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	return []byte(raw), nil
}

// PutState writes the state record for examID, replacing any previous
// one. The finalized flag is denormalized into its own column so the
// exam list can mark completed exams without decoding every record.
func (s *Store) PutState(ctx context.Context, examID int, state []byte, finalized bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (key, exam_id, state_json, finalized, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET
		   state_json = excluded.state_json,
		   finalized  = excluded.finalized,
		   updated_at = excluded.updated_at`,
		Key(examID), examID, string(state), boolToInt(finalized), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("put state: %w", err)
	}
	return nil
}

// DeleteState removes the record for examID. Missing records are fine.
func (s *Store) DeleteState(ctx context.Context, examID int) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE key = ?`, Key(examID)); err != nil {
		return fmt.Errorf("delete state: %w", err)
	}
	return nil
}

// ClearStates drops every session record under the namespace. Used
// when imported exam data is discarded.
func (s *Store) ClearStates(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE key LIKE ?`, Namespace+":%"); err != nil {
		return fmt.Errorf("clear states: %w", err)
	}
	return nil
}

// ListFinalized returns the set of exam ids whose stored session is
// finalized. Feeds the "completed" badge on the exam list.
func (s *Store) ListFinalized(ctx context.Context) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT exam_id FROM sessions WHERE finalized = 1`)
	if err != nil {
		return nil, fmt.Errorf("list finalized: %w", err)
	}
	defer rows.Close()

	finalized := map[int]bool{}
	for rows.Next() {
		var examID int
		if err := rows.Scan(&examID); err != nil {
			return nil, fmt.Errorf("scan finalized: %w", err)
		}
		finalized[examID] = true
	}
	return finalized, rows.Err()
}

// PutCatalog saves the imported exams.json payload.
func (s *Store) PutCatalog(ctx context.Context, payload []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO catalog_files (name, payload, imported_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET
		   payload     = excluded.payload,
		   imported_at = excluded.imported_at`,
		uploadedCatalogName, string(payload), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("put catalog: %w", err)
	}
	return nil
}

// GetCatalog returns the imported exams.json payload, or nil when none
// has been imported.
func (s *Store) GetCatalog(ctx context.Context) ([]byte, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM catalog_files WHERE name = ?`, uploadedCatalogName,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get catalog: %w", err)
	}
	return []byte(raw), nil
}

// DeleteCatalog removes the imported exams.json copy.
func (s *Store) DeleteCatalog(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM catalog_files WHERE name = ?`, uploadedCatalogName); err != nil {
		return fmt.Errorf("delete catalog: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
