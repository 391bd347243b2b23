package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tOgg1/foldline/internal/timeline"
)

// GroupRecord is one persisted group of a snapshot.
type GroupRecord struct {
	Key          string
	Start        int
	End          int
	Size         int
	RoomCreation bool
	Summary      string
	Avatars      []string
}

// Snapshot is the grouping of a room timeline at one point in time.
type Snapshot struct {
	ID        string
	RoomID    string
	CreatedAt time.Time
	Groups    []GroupRecord
}

// RecordsFromIndex flattens index into records in timeline order. Groups whose caches are
// stale are refreshed first.
func RecordsFromIndex(index *timeline.GroupIndex) []GroupRecord {
	groups := index.Groups()
	records := make([]GroupRecord, 0, len(groups))
	for _, g := range groups {
		summary, ok := g.CachedSummary()
		if !ok {
			g.Refresh()
			summary, _ = g.CachedSummary()
		}
		avatarIDs, _ := g.CachedAvatarUserIDs()
		avatars := make([]string, 0, len(avatarIDs))
		for _, id := range avatarIDs {
			avatars = append(avatars, id.String())
		}
		records = append(records, GroupRecord{
			Key:          g.Key().String(),
			Start:        g.Range().Start,
			End:          g.Range().End,
			Size:         g.Size(),
			RoomCreation: g.IsRoomCreation(),
			Summary:      summary,
			Avatars:      avatars,
		})
	}
	return records
}

// SaveSnapshot records the groups of index for roomID and returns the new snapshot.
func (s *Store) SaveSnapshot(ctx context.Context, roomID string, index *timeline.GroupIndex) (*Snapshot, error) {
	if index == nil {
		return nil, errors.New("group index is required")
	}
	if _, err := s.Room(ctx, roomID); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		ID:        uuid.New().String(),
		RoomID:    roomID,
		CreatedAt: time.Now().UTC(),
		Groups:    RecordsFromIndex(index),
	}

	err := s.transactionWithRetry(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO snapshots (id, room_id, created_at, group_count) VALUES (?, ?, ?, ?)
		`, snap.ID, snap.RoomID, snap.CreatedAt.Format(timeFormat), len(snap.Groups)); err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO group_summaries (
				snapshot_id, ordinal, group_key, start_index, end_index, size, room_creation, summary, avatars_json
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare group insert: %w", err)
		}
		defer stmt.Close()

		for i, g := range snap.Groups {
			avatarsJSON, err := json.Marshal(g.Avatars)
			if err != nil {
				return fmt.Errorf("failed to marshal avatars: %w", err)
			}
			if _, err := stmt.ExecContext(ctx,
				snap.ID, i, g.Key, g.Start, g.End, g.Size, boolToInt(g.RoomCreation), g.Summary, string(avatarsJSON),
			); err != nil {
				return fmt.Errorf("failed to insert group %s: %w", g.Key, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("room_id", roomID).
		Str("snapshot_id", snap.ID).
		Int("groups", len(snap.Groups)).
		Msg("snapshot saved")
	return snap, nil
}

// LatestSnapshot returns the most recent snapshot of roomID.
func (s *Store) LatestSnapshot(ctx context.Context, roomID string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, room_id, created_at FROM snapshots
		WHERE room_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, roomID)
	return s.loadSnapshot(ctx, row)
}

// GetSnapshot returns the snapshot with id.
func (s *Store) GetSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, room_id, created_at FROM snapshots WHERE id = ?
	`, id)
	return s.loadSnapshot(ctx, row)
}

func (s *Store) loadSnapshot(ctx context.Context, row *sql.Row) (*Snapshot, error) {
	var (
		snap      Snapshot
		createdAt string
	)
	if err := row.Scan(&snap.ID, &snap.RoomID, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	if t, err := time.Parse(timeFormat, createdAt); err == nil {
		snap.CreatedAt = t
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT group_key, start_index, end_index, size, room_creation, summary, avatars_json
		FROM group_summaries WHERE snapshot_id = ? ORDER BY ordinal
	`, snap.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			g            GroupRecord
			roomCreation int
			avatarsJSON  string
		)
		if err := rows.Scan(&g.Key, &g.Start, &g.End, &g.Size, &roomCreation, &g.Summary, &avatarsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		g.RoomCreation = roomCreation != 0
		if err := json.Unmarshal([]byte(avatarsJSON), &g.Avatars); err != nil {
			return nil, fmt.Errorf("failed to parse avatars: %w", err)
		}
		snap.Groups = append(snap.Groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read groups: %w", err)
	}
	return &snap, nil
}
