package timeline

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/tOgg1/foldline/internal/logging"
	"github.com/tOgg1/foldline/internal/matrix"
)

// EngineConfig configures an Engine.
type EngineConfig struct {
	Options
	// SummaryMemoSize is the number of rendered summaries kept across rebuilds (0 disables).
	SummaryMemoSize int
	// ClassifyWorkers > 1 classifies large timelines in parallel.
	ClassifyWorkers int
	// Registerer receives the engine metrics when set.
	Registerer prometheus.Registerer
	// RoomID only labels log lines.
	RoomID string
}

// ItemPlacement says how a timeline item relates to the groups.
type ItemPlacement int

const (
	// Ungrouped items render on their own.
	Ungrouped ItemPlacement = iota
	// GroupHeader is the first item of a group, where the folded summary renders.
	GroupHeader
	// GroupMember items are inside a group but not its first item.
	GroupMember
)

// ItemState is the answer to "what should the presentation layer do with item i".
type ItemState struct {
	Placement ItemPlacement
	Group     *Group
	Range     Range
}

// Engine owns the group index for one timeline view. It is not safe for concurrent use; the
// owning view calls Recompute from its own goroutine whenever the timeline changes structurally.
type Engine struct {
	cfg     EngineConfig
	index   *GroupIndex
	memo    *summaryMemo
	metrics *Metrics
	logger  zerolog.Logger

	events []UserEvent
}

// NewEngine creates an engine with an empty index.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	memo, err := newSummaryMemo(cfg.SummaryMemoSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create summary memo: %w", err)
	}

	logger := logging.ForRoom("timeline-engine", cfg.RoomID)

	index := NewGroupIndex(cfg.Options)
	index.memo = memo
	index.logger = logger

	return &Engine{
		cfg:     cfg,
		index:   index,
		memo:    memo,
		metrics: NewMetrics(cfg.Registerer),
		logger:  logger,
	}, nil
}

// Recompute reclassifies the whole timeline and rebuilds the group index. It is the only way
// the index changes.
func (e *Engine) Recompute(items []matrix.RawItem) {
	started := time.Now()

	var events []UserEvent
	if e.cfg.ClassifyWorkers > 1 {
		// Classification never blocks, so the background context cannot be cancelled here.
		events, _ = ClassifyParallel(context.Background(), items, e.cfg.ClassifyWorkers)
	} else {
		events = Classify(items)
	}

	e.index.Rebuild(events)
	e.events = events

	hits, misses := 0, 0
	if e.memo != nil {
		hits, misses = e.memo.takeStats()
	}
	elapsed := time.Since(started)
	e.metrics.observeRebuild(e.index.Len(), elapsed, hits, misses)

	e.logger.Debug().
		Int("items", len(items)).
		Int("events", len(events)).
		Int("groups", e.index.Len()).
		Int("memo_hits", hits).
		Dur("elapsed", elapsed).
		Msg("recomputed timeline groups")
}

// Index returns the current group index.
func (e *Engine) Index() *GroupIndex {
	return e.index
}

// Events returns the classified events from the last Recompute.
func (e *Engine) Events() []UserEvent {
	return append([]UserEvent(nil), e.events...)
}

// ItemState reports where item index sits relative to the groups.
func (e *Engine) ItemState(index int) ItemState {
	group, ok := e.index.GroupContaining(index)
	if !ok {
		return ItemState{Placement: Ungrouped}
	}
	state := ItemState{Placement: GroupMember, Group: group, Range: group.Range()}
	if group.Range().Start == index {
		state.Placement = GroupHeader
	}
	return state
}
