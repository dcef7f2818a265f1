package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// EventRow is one persisted lifecycle transition of the game manager.
type EventRow struct {
	ID         int64     `json:"id"`
	InstanceID string    `json:"instanceId,omitempty"`
	GameID     string    `json:"gameId"`
	Kind       string    `json:"kind"` // "loaded", "unloaded", "failed", "not_found"
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Store handles SQLite persistence.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database and runs migrations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A second connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)
	// WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS lifecycle_events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			instance_id TEXT NOT NULL DEFAULT '',
			game_id     TEXT NOT NULL,
			kind        TEXT NOT NULL,
			detail      TEXT NOT NULL DEFAULT '',
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_lifecycle_events_created ON lifecycle_events(created_at);
		CREATE TABLE IF NOT EXISTS preferences (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

// RecordEvent appends a lifecycle event.
func (s *Store) RecordEvent(ctx context.Context, e EventRow) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO lifecycle_events (instance_id, game_id, kind, detail, created_at) VALUES (?, ?, ?, ?, ?)",
		e.InstanceID, e.GameID, e.Kind, e.Detail, createdAt.UTC(),
	)
	return err
}

// ListEvents returns up to limit events, newest first.
func (s *Store) ListEvents(ctx context.Context, limit int) ([]EventRow, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, instance_id, game_id, kind, detail, created_at FROM lifecycle_events ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []EventRow
	for rows.Next() {
		var er EventRow
		if err := rows.Scan(&er.ID, &er.InstanceID, &er.GameID, &er.Kind, &er.Detail, &er.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, er)
	}
	return result, rows.Err()
}

// PruneEvents deletes events created before the given time and reports how
// many were removed.
func (s *Store) PruneEvents(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM lifecycle_events WHERE created_at < ?", before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetPreference upserts a preference value.
func (s *Store) SetPreference(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	return err
}

// GetPreference retrieves a preference value. It returns sql.ErrNoRows when
// the key was never set.
func (s *Store) GetPreference(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	return value, err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
