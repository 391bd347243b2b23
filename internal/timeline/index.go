package timeline

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/tOgg1/foldline/internal/logging"
	"github.com/tOgg1/foldline/internal/matrix"
)

// Options are the grouping and summary limits.
type Options struct {
	// MinGroupSize is the shortest regular run that becomes a group.
	MinGroupSize int
	// MaxNamesBeforeCoalesce is how many names a summary lists before "and N others".
	MaxNamesBeforeCoalesce int
	// MaxAvatars bounds each group's avatar list.
	MaxAvatars int
}

// DefaultOptions returns the standard limits.
func DefaultOptions() Options {
	return Options{
		MinGroupSize:           DefaultMinGroupSize,
		MaxNamesBeforeCoalesce: DefaultMaxNamesBeforeCoalesce,
		MaxAvatars:             DefaultMaxAvatars,
	}
}

func (o Options) normalized() Options {
	if o.MinGroupSize < 1 {
		o.MinGroupSize = DefaultMinGroupSize
	}
	if o.MaxNamesBeforeCoalesce < 1 {
		o.MaxNamesBeforeCoalesce = DefaultMaxNamesBeforeCoalesce
	}
	if o.MaxAvatars < 1 {
		o.MaxAvatars = DefaultMaxAvatars
	}
	return o
}

// GroupIndex owns the range -> key mapping and the key -> group mapping for one timeline.
// It is rebuilt from scratch on every structural timeline change.
type GroupIndex struct {
	opts      Options
	intervals *IntervalIndex
	groups    map[GroupKey]*Group
	memo      *summaryMemo
	logger    zerolog.Logger
}

// NewGroupIndex creates an empty index.
func NewGroupIndex(opts Options) *GroupIndex {
	return &GroupIndex{
		opts:      opts.normalized(),
		intervals: NewIntervalIndex(),
		groups:    make(map[GroupKey]*Group),
		logger:    logging.Component("group-index"),
	}
}

// BuildGroups builds a fresh index over events with the default summary limits.
func BuildGroups(events []UserEvent, minGroupSize int) *GroupIndex {
	opts := DefaultOptions()
	opts.MinGroupSize = minGroupSize
	idx := NewGroupIndex(opts)
	idx.Rebuild(events)
	return idx
}

// run is a candidate group before it is keyed and filed.
type run struct {
	events       []UserEvent
	roomCreation bool
}

func (r run) span() Range {
	return Range{Start: r.events[0].Index, End: r.events[len(r.events)-1].Index + 1}
}

func (r run) key() GroupKey {
	if id := r.events[0].EventID; id != "" {
		return eventGroupKey(id)
	}
	return syntheticGroupKey(r.span())
}

// Rebuild clears the range mapping and repopulates it from events, which must be in ascending
// index order. Groups whose key survives are updated in place; the rest are dropped. Every
// group left in the index has fresh caches when Rebuild returns.
func (x *GroupIndex) Rebuild(events []UserEvent) {
	runs := partitionRuns(events, x.opts.MinGroupSize)

	x.intervals.Clear()
	seen := make(map[GroupKey]struct{}, len(runs))

	for _, r := range runs {
		key := r.key()
		rng := r.span()
		if _, dup := seen[key]; dup {
			// A repeated leading event id would alias two groups; fall back to the range.
			x.logger.Warn().Str("group", key.String()).Stringer("range", rng).Msg("duplicate group key")
			key = syntheticGroupKey(rng)
		}
		if err := x.intervals.Insert(rng, key); err != nil {
			x.logger.Error().Err(err).Str("group", key.String()).Msg("dropping group with invalid range")
			continue
		}

		var creator matrix.UserID
		if r.roomCreation {
			creator = r.events[0].ActingUser
		}

		group, ok := x.groups[key]
		if !ok {
			group = newGroup(key, x.opts, x.memo)
			x.groups[key] = group
		}
		group.reset(rng, r.roomCreation, creator)
		for _, ev := range r.events {
			group.addEvent(ev)
		}
		group.Refresh()
		seen[key] = struct{}{}
	}

	for key := range x.groups {
		if _, ok := seen[key]; !ok {
			delete(x.groups, key)
		}
	}
}

// partitionRuns splits classified events into the room-creation run plus every regular run of
// at least minSize consecutive indices.
func partitionRuns(events []UserEvent, minSize int) []run {
	filtered := make([]UserEvent, 0, len(events))
	for _, ev := range events {
		if ev.Transition != VirtualTimelineItem {
			filtered = append(filtered, ev)
		}
	}
	if len(filtered) == 0 {
		return nil
	}

	var runs []run
	absorbed := make([]bool, len(filtered))

	if creation, ok := roomCreationRun(filtered); ok {
		for i := creation.first; i < creation.first+len(creation.events); i++ {
			absorbed[i] = true
		}
		runs = append(runs, run{events: creation.events, roomCreation: true})
	}

	var current []UserEvent
	flush := func() {
		if len(current) >= minSize {
			runs = append(runs, run{events: current})
		}
		current = nil
	}
	for i, ev := range filtered {
		if absorbed[i] {
			flush()
			continue
		}
		if n := len(current); n > 0 && ev.Index != current[n-1].Index+1 {
			flush()
		}
		current = append(current, ev)
	}
	flush()

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].events[0].Index < runs[j].events[0].Index
	})
	return runs
}

type creationRun struct {
	first  int
	events []UserEvent
}

// roomCreationRun finds the first CreateRoom event and extends it through the creator's
// directly following Joined and ConfigureRoom events.
func roomCreationRun(events []UserEvent) (creationRun, bool) {
	start := -1
	for i, ev := range events {
		if ev.Transition == CreateRoom {
			start = i
			break
		}
	}
	if start < 0 {
		return creationRun{}, false
	}

	creator := events[start].ActingUser
	end := start + 1
	for end < len(events) {
		ev := events[end]
		if ev.Index != events[end-1].Index+1 || ev.ActingUser != creator {
			break
		}
		if ev.Transition != Joined && ev.Transition != ConfigureRoom {
			break
		}
		end++
	}
	return creationRun{first: start, events: append([]UserEvent(nil), events[start:end]...)}, true
}

// Contains returns the full range of the group covering index.
func (x *GroupIndex) Contains(index int) (Range, bool) {
	rng, _, ok := x.intervals.Lookup(index)
	return rng, ok
}

// GroupContaining returns the group covering index.
func (x *GroupIndex) GroupContaining(index int) (*Group, bool) {
	_, key, ok := x.intervals.Lookup(index)
	if !ok {
		return nil, false
	}
	g, ok := x.groups[key]
	return g, ok
}

// GroupAtStart returns the group whose range begins exactly at index.
func (x *GroupIndex) GroupAtStart(index int) (*Group, bool) {
	key, ok := x.intervals.KeyAtStart(index)
	if !ok {
		return nil, false
	}
	g, ok := x.groups[key]
	return g, ok
}

// Group looks a group up by key.
func (x *GroupIndex) Group(key GroupKey) (*Group, bool) {
	g, ok := x.groups[key]
	return g, ok
}

// Groups returns every group ordered by range start.
func (x *GroupIndex) Groups() []*Group {
	out := make([]*Group, 0, len(x.groups))
	for _, rng := range x.intervals.Ranges() {
		if g, ok := x.GroupAtStart(rng.Start); ok {
			out = append(out, g)
		}
	}
	return out
}

// Len is the number of groups.
func (x *GroupIndex) Len() int {
	return len(x.groups)
}

// Options returns the limits the index was built with.
func (x *GroupIndex) Options() Options {
	return x.opts
}
