package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RoomInfo describes an imported room.
type RoomInfo struct {
	RoomID     string    `json:"room_id"`
	EventCount int       `json:"event_count"`
	ImportedAt time.Time `json:"imported_at"`
}

// SaveTimeline replaces the stored timeline of roomID with events, in order.
// Any snapshots of the previous timeline are kept.
func (s *Store) SaveTimeline(ctx context.Context, roomID string, events []json.RawMessage) error {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return ErrInvalidRoom
	}
	now := time.Now().UTC().Format(timeFormat)

	err := s.transactionWithRetry(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO rooms (room_id, event_count, imported_at) VALUES (?, ?, ?)
			ON CONFLICT(room_id) DO UPDATE SET event_count = excluded.event_count, imported_at = excluded.imported_at
		`, roomID, len(events), now); err != nil {
			return fmt.Errorf("failed to upsert room: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM timeline_events WHERE room_id = ?`, roomID); err != nil {
			return fmt.Errorf("failed to clear timeline: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO timeline_events (room_id, position, event_id, raw_json) VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare event insert: %w", err)
		}
		defer stmt.Close()

		for i, raw := range events {
			if _, err := stmt.ExecContext(ctx, roomID, i, nullableString(eventIDOf(raw)), string(raw)); err != nil {
				return fmt.Errorf("failed to insert event %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("room_id", roomID).Int("events", len(events)).Msg("timeline saved")
	return nil
}

// LoadTimeline returns the stored events of roomID in timeline order.
func (s *Store) LoadTimeline(ctx context.Context, roomID string) ([]json.RawMessage, error) {
	if _, err := s.Room(ctx, roomID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT raw_json FROM timeline_events WHERE room_id = ? ORDER BY position
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query timeline: %w", err)
	}
	defer rows.Close()

	var events []json.RawMessage
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, json.RawMessage(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read timeline: %w", err)
	}
	return events, nil
}

// Room returns metadata for roomID.
func (s *Store) Room(ctx context.Context, roomID string) (*RoomInfo, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT room_id, event_count, imported_at FROM rooms WHERE room_id = ?
	`, roomID)
	info, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return info, nil
}

// ListRooms returns every imported room ordered by id.
func (s *Store) ListRooms(ctx context.Context) ([]*RoomInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT room_id, event_count, imported_at FROM rooms ORDER BY room_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*RoomInfo
	for rows.Next() {
		info, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, info)
	}
	return rooms, rows.Err()
}

// DeleteRoom removes a room with its timeline and snapshots.
func (s *Store) DeleteRoom(ctx context.Context, roomID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE room_id = ?`, roomID)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrRoomNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRoom(row scanner) (*RoomInfo, error) {
	var (
		info       RoomInfo
		importedAt string
	)
	if err := row.Scan(&info.RoomID, &info.EventCount, &importedAt); err != nil {
		return nil, err
	}
	if t, err := time.Parse(timeFormat, importedAt); err == nil {
		info.ImportedAt = t
	}
	return &info, nil
}

func eventIDOf(raw json.RawMessage) string {
	var head struct {
		EventID string `json:"event_id"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return ""
	}
	return head.EventID
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
