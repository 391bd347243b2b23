package timeline

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/tOgg1/foldline/internal/matrix"
)

func joinItem(id, user, name string) matrix.RawItem {
	uid := matrix.UserID("@" + user + ":example.org")
	return matrix.RawItem{
		EventID:  matrix.EventID(id),
		Sender:   uid,
		StateKey: string(uid),
		Content:  &matrix.MembershipChange{Change: matrix.MembershipJoined, UserID: uid, DisplayName: name},
	}
}

func textItem(user string) matrix.RawItem {
	return matrix.RawItem{
		Sender:  matrix.UserID("@" + user + ":example.org"),
		Content: &matrix.MessageLike{Kind: matrix.MessageText},
	}
}

func newTestEngine(t *testing.T, reg prometheus.Registerer) *Engine {
	t.Helper()
	engine, err := NewEngine(EngineConfig{
		Options:         DefaultOptions(),
		SummaryMemoSize: 16,
		Registerer:      reg,
		RoomID:          "!room:example.org",
	})
	require.NoError(t, err)
	return engine
}

func TestEngineRecomputeAndItemState(t *testing.T) {
	engine := newTestEngine(t, nil)
	engine.Recompute([]matrix.RawItem{
		textItem("x"),
		joinItem("$1", "bob", "Bob"),
		joinItem("$2", "carol", "Carol"),
		joinItem("$3", "dave", "Dave"),
		textItem("x"),
	})

	require.Equal(t, Ungrouped, engine.ItemState(0).Placement)

	header := engine.ItemState(1)
	require.Equal(t, GroupHeader, header.Placement)
	require.Equal(t, Range{1, 4}, header.Range)
	summary, ok := header.Group.CachedSummary()
	require.True(t, ok)
	require.Equal(t, "Bob, Carol, and Dave joined", summary)

	member := engine.ItemState(3)
	require.Equal(t, GroupMember, member.Placement)
	require.Same(t, header.Group, member.Group)

	require.Equal(t, Ungrouped, engine.ItemState(4).Placement)
	require.Len(t, engine.Events(), 3)
}

func TestEngineStructuralChangeRebuildsFromScratch(t *testing.T) {
	engine := newTestEngine(t, nil)
	items := []matrix.RawItem{
		joinItem("$1", "bob", "Bob"),
		joinItem("$2", "carol", "Carol"),
		joinItem("$3", "dave", "Dave"),
	}
	engine.Recompute(items)
	require.Equal(t, 1, engine.Index().Len())

	// A message inserted mid-run splits it into two short runs.
	engine.Recompute([]matrix.RawItem{items[0], items[1], textItem("x"), items[2]})
	require.Equal(t, 0, engine.Index().Len())
	require.Equal(t, Ungrouped, engine.ItemState(0).Placement)
}

func TestEngineParallelClassification(t *testing.T) {
	engine, err := NewEngine(EngineConfig{Options: DefaultOptions(), ClassifyWorkers: 4})
	require.NoError(t, err)

	items := make([]matrix.RawItem, 0, 300)
	for i := 0; i < 300; i++ {
		items = append(items, joinItem("", "u", "U"))
	}
	engine.Recompute(items)
	require.Equal(t, 1, engine.Index().Len())
	g, ok := engine.Index().GroupAtStart(0)
	require.True(t, ok)
	require.Equal(t, Range{0, 300}, g.Range())
	require.Equal(t, GroupKey{Start: 0, End: 300}, g.Key())
	summary, _ := g.CachedSummary()
	require.Equal(t, "U joined ×300", summary)
}

func TestEngineMetricsAndMemo(t *testing.T) {
	reg := prometheus.NewRegistry()
	engine := newTestEngine(t, reg)

	items := []matrix.RawItem{
		joinItem("$1", "bob", "Bob"),
		joinItem("$2", "carol", "Carol"),
		joinItem("$3", "dave", "Dave"),
	}
	engine.Recompute(items)
	// A leading message shifts every index; the group is re-keyed by the same first event and
	// its summary comes from the memo.
	engine.Recompute(append([]matrix.RawItem{textItem("x")}, items...))

	require.Equal(t, float64(2), testutil.ToFloat64(engine.metrics.rebuilds))
	require.Equal(t, float64(1), testutil.ToFloat64(engine.metrics.groups))
	require.Equal(t, float64(1), testutil.ToFloat64(engine.metrics.memoHits))
	require.Equal(t, float64(1), testutil.ToFloat64(engine.metrics.memoMisses))

	g, ok := engine.Index().GroupAtStart(1)
	require.True(t, ok)
	summary, _ := g.CachedSummary()
	require.Equal(t, "Bob, Carol, and Dave joined", summary)

	count, err := testutil.GatherAndCount(reg, "foldline_rebuilds_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
