package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/foldline/internal/matrix"
	"github.com/tOgg1/foldline/internal/timeline"
)

const testRoom = "!room:example.org"

const joinsDoc = `[
	{"type":"m.room.member","event_id":"$1","sender":"@bob:example.org","state_key":"@bob:example.org","content":{"membership":"join","displayname":"Bob"}},
	{"type":"m.room.member","event_id":"$2","sender":"@carol:example.org","state_key":"@carol:example.org","content":{"membership":"join","displayname":"Carol"}},
	{"type":"m.room.member","event_id":"$3","sender":"@dave:example.org","state_key":"@dave:example.org","content":{"membership":"join","displayname":"Dave"}},
	{"type":"m.room.message","event_id":"$4","sender":"@bob:example.org","content":{"msgtype":"m.text","body":"hi"}}
]`

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func splitEvents(t *testing.T, doc string) []json.RawMessage {
	t.Helper()
	_, events, _, err := matrix.SplitDocument([]byte(doc), matrix.FormatJSON)
	require.NoError(t, err)
	return events
}

func buildIndex(t *testing.T, events []json.RawMessage) *timeline.GroupIndex {
	t.Helper()
	items, _, report := matrix.NewDecoder().Decode(events)
	require.Zero(t, report.Skipped)
	return timeline.BuildGroups(timeline.Classify(items), timeline.DefaultMinGroupSize)
}

func TestSaveAndLoadTimeline(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	events := splitEvents(t, joinsDoc)

	require.NoError(t, s.SaveTimeline(ctx, testRoom, events))

	loaded, err := s.LoadTimeline(ctx, testRoom)
	require.NoError(t, err)
	require.Len(t, loaded, len(events))
	for i := range events {
		require.JSONEq(t, string(events[i]), string(loaded[i]))
	}

	info, err := s.Room(ctx, testRoom)
	require.NoError(t, err)
	require.Equal(t, 4, info.EventCount)
	require.False(t, info.ImportedAt.IsZero())
}

func TestSaveTimelineReplaces(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	events := splitEvents(t, joinsDoc)

	require.NoError(t, s.SaveTimeline(ctx, testRoom, events))
	require.NoError(t, s.SaveTimeline(ctx, testRoom, events[:2]))

	loaded, err := s.LoadTimeline(ctx, testRoom)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	rooms, err := s.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Equal(t, 2, rooms[0].EventCount)
}

func TestSaveTimelineRejectsEmptyRoom(t *testing.T) {
	s := newTestStore(t)
	err := s.SaveTimeline(context.Background(), "  ", nil)
	require.ErrorIs(t, err, ErrInvalidRoom)
}

func TestLoadTimelineUnknownRoom(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LoadTimeline(context.Background(), "!missing:example.org")
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	events := splitEvents(t, joinsDoc)
	require.NoError(t, s.SaveTimeline(ctx, testRoom, events))

	snap, err := s.SaveSnapshot(ctx, testRoom, buildIndex(t, events))
	require.NoError(t, err)
	require.NotEmpty(t, snap.ID)
	require.Len(t, snap.Groups, 1)

	latest, err := s.LatestSnapshot(ctx, testRoom)
	require.NoError(t, err)
	require.Equal(t, snap.ID, latest.ID)
	require.Equal(t, []GroupRecord{{
		Key:     "$1",
		Start:   0,
		End:     3,
		Size:    3,
		Summary: "Bob, Carol, and Dave joined",
		Avatars: []string{"@bob:example.org", "@carol:example.org", "@dave:example.org"},
	}}, latest.Groups)

	byID, err := s.GetSnapshot(ctx, snap.ID)
	require.NoError(t, err)
	require.Equal(t, latest.Groups, byID.Groups)
}

func TestLatestSnapshotPicksNewest(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	events := splitEvents(t, joinsDoc)
	require.NoError(t, s.SaveTimeline(ctx, testRoom, events))

	first, err := s.SaveSnapshot(ctx, testRoom, buildIndex(t, events))
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := s.SaveSnapshot(ctx, testRoom, buildIndex(t, events[:2]))
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	latest, err := s.LatestSnapshot(ctx, testRoom)
	require.NoError(t, err)
	require.Equal(t, second.ID, latest.ID)
	require.Empty(t, latest.Groups)
}

func TestSnapshotErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.LatestSnapshot(ctx, testRoom)
	require.ErrorIs(t, err, ErrSnapshotNotFound)

	_, err = s.SaveSnapshot(ctx, testRoom, timeline.NewGroupIndex(timeline.DefaultOptions()))
	require.ErrorIs(t, err, ErrRoomNotFound)

	_, err = s.GetSnapshot(ctx, "nope")
	require.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestDeleteRoomCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	events := splitEvents(t, joinsDoc)
	require.NoError(t, s.SaveTimeline(ctx, testRoom, events))
	snap, err := s.SaveSnapshot(ctx, testRoom, buildIndex(t, events))
	require.NoError(t, err)

	require.NoError(t, s.DeleteRoom(ctx, testRoom))
	_, err = s.GetSnapshot(ctx, snap.ID)
	require.ErrorIs(t, err, ErrSnapshotNotFound)
	require.ErrorIs(t, s.DeleteRoom(ctx, testRoom), ErrRoomNotFound)
}

func TestOpenFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "foldline.db")

	s, err := Open(ctx, path, 0)
	require.NoError(t, err)
	require.NoError(t, s.SaveTimeline(ctx, testRoom, splitEvents(t, joinsDoc)))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path, 1000)
	require.NoError(t, err)
	defer s.Close()
	require.Equal(t, path, s.Path())
	loaded, err := s.LoadTimeline(ctx, testRoom)
	require.NoError(t, err)
	require.Len(t, loaded, 4)
}

func TestWithRetry(t *testing.T) {
	ctx := context.Background()

	attempts := 0
	err := withRetry(ctx, 3, time.Millisecond, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)

	attempts = 0
	err = withRetry(ctx, 3, time.Millisecond, func() error {
		attempts++
		return errors.New("boom")
	})
	require.Error(t, err)
	require.Equal(t, 1, attempts)

	attempts = 0
	err = withRetry(ctx, 2, time.Millisecond, func() error {
		attempts++
		return errors.New("SQLITE_BUSY")
	})
	require.Error(t, err)
	require.Equal(t, 2, attempts)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	require.ErrorIs(t, withRetry(cancelled, 3, time.Millisecond, func() error { return nil }), context.Canceled)
}
