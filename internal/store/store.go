// Package store persists room timelines and group snapshots in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/tOgg1/foldline/internal/logging"
)

// Store errors.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrInvalidRoom      = errors.New("invalid room id")
)

const (
	defaultBusyTimeoutMs = 5000

	// Fixed width so stored timestamps sort lexically.
	timeFormat = "2006-01-02T15:04:05.000000000Z07:00"
)

// Store wraps the SQLite database holding imported timelines.
type Store struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string, busyTimeoutMs int) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is required")
	}
	if busyTimeoutMs <= 0 {
		busyTimeoutMs = defaultBusyTimeoutMs
	}
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)", path, busyTimeoutMs)
	return open(ctx, dsn, path)
}

// OpenInMemory opens a private in-memory database. Used by tests and one-shot commands.
func OpenInMemory(ctx context.Context) (*Store, error) {
	return open(ctx, "file::memory:?_pragma=foreign_keys(ON)", ":memory:")
}

func open(ctx context.Context, dsn, path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; also keeps an in-memory database on a single connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{
		db:     db,
		path:   path,
		logger: logging.Component("store"),
	}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.logger.Debug().Str("path", path).Msg("database opened")
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			room_id TEXT PRIMARY KEY,
			event_count INTEGER NOT NULL,
			imported_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS timeline_events (
			room_id TEXT NOT NULL REFERENCES rooms(room_id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			event_id TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (room_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			room_id TEXT NOT NULL REFERENCES rooms(room_id) ON DELETE CASCADE,
			created_at TEXT NOT NULL,
			group_count INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS group_summaries (
			snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
			ordinal INTEGER NOT NULL,
			group_key TEXT NOT NULL,
			start_index INTEGER NOT NULL,
			end_index INTEGER NOT NULL,
			size INTEGER NOT NULL,
			room_creation INTEGER NOT NULL DEFAULT 0,
			summary TEXT NOT NULL,
			avatars_json TEXT NOT NULL,
			PRIMARY KEY (snapshot_id, ordinal)
		)`,
		`CREATE INDEX IF NOT EXISTS snapshots_room_idx ON snapshots(room_id, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
