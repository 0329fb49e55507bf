package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/thetabots/xkcd-bot/internal/biz/domain"
	"github.com/thetabots/xkcd-bot/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// SQLiteStateRepo stores room state documents in a local SQLite database.
// Used by backends without server-side room state.
type SQLiteStateRepo struct {
	db *sql.DB
}

// NewSQLiteStateRepo opens (and creates if needed) the state database
func NewSQLiteStateRepo(dbPath string) (*SQLiteStateRepo, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	// Event workers and the scheduler write concurrently: wait for the write lock instead of failing
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite has a single writer; one connection serializes writes inside the process
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS room_state (
			room_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			content TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (room_id, event_type)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &SQLiteStateRepo{db: db}, nil
}

// GetState implements repo.StateRepo
func (r *SQLiteStateRepo) GetState(ctx context.Context, room domain.RoomID, key string, out any) error {
	row := r.db.QueryRowContext(ctx, `
		SELECT content FROM room_state WHERE room_id = ? AND event_type = ?
	`, string(room), key)

	var content string
	err := row.Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s in %s: %w", key, room, repo.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to query state: %w", err)
	}
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// SetState implements repo.StateRepo
func (r *SQLiteStateRepo) SetState(ctx context.Context, room domain.RoomID, key string, doc any) error {
	content, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO room_state (room_id, event_type, content, updated_at)
		VALUES (?, ?, ?, ?)
	`, string(room), key, string(content), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// Rooms lists every room that has stored state
func (r *SQLiteStateRepo) Rooms(ctx context.Context) ([]domain.RoomID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT room_id FROM room_state ORDER BY room_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []domain.RoomID
	for rows.Next() {
		var room string
		if err := rows.Scan(&room); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, domain.RoomID(room))
	}
	return rooms, rows.Err()
}

// Close closes the database
func (r *SQLiteStateRepo) Close() error {
	return r.db.Close()
}
