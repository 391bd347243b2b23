package timeline

import (
	"errors"
	"fmt"
	"sort"
)

// ErrOverlappingRange is returned when a range would overlap one already in the index.
var ErrOverlappingRange = errors.New("overlapping group range")

// Range is a half-open span [Start, End) of timeline indices.
type Range struct {
	Start int
	End   int
}

// Contains reports whether index falls inside the range.
func (r Range) Contains(index int) bool {
	return index >= r.Start && index < r.End
}

// Len is the number of indices covered.
func (r Range) Len() int {
	return r.End - r.Start
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

type span struct {
	rng Range
	key GroupKey
}

// IntervalIndex maps disjoint ranges to group keys. Spans are kept sorted by start so point
// lookups are a binary search; starts are also indexed for exact header lookups.
type IntervalIndex struct {
	spans   []span
	byStart map[int]GroupKey
}

// NewIntervalIndex creates an empty index.
func NewIntervalIndex() *IntervalIndex {
	return &IntervalIndex{byStart: make(map[int]GroupKey)}
}

// Clear drops every range.
func (x *IntervalIndex) Clear() {
	x.spans = x.spans[:0]
	clear(x.byStart)
}

// Insert adds r -> key. Empty ranges and ranges overlapping an existing span are rejected.
func (x *IntervalIndex) Insert(r Range, key GroupKey) error {
	if r.End <= r.Start {
		return fmt.Errorf("empty range %s", r)
	}
	pos := sort.Search(len(x.spans), func(i int) bool {
		return x.spans[i].rng.Start >= r.Start
	})
	if pos < len(x.spans) && x.spans[pos].rng.Start < r.End {
		return fmt.Errorf("%w: %s overlaps %s", ErrOverlappingRange, r, x.spans[pos].rng)
	}
	if pos > 0 && x.spans[pos-1].rng.End > r.Start {
		return fmt.Errorf("%w: %s overlaps %s", ErrOverlappingRange, r, x.spans[pos-1].rng)
	}

	x.spans = append(x.spans, span{})
	copy(x.spans[pos+1:], x.spans[pos:])
	x.spans[pos] = span{rng: r, key: key}
	x.byStart[r.Start] = key
	return nil
}

// Lookup returns the range and key covering index.
func (x *IntervalIndex) Lookup(index int) (Range, GroupKey, bool) {
	pos := sort.Search(len(x.spans), func(i int) bool {
		return x.spans[i].rng.End > index
	})
	if pos == len(x.spans) || !x.spans[pos].rng.Contains(index) {
		return Range{}, GroupKey{}, false
	}
	return x.spans[pos].rng, x.spans[pos].key, true
}

// KeyAtStart returns the key of the range starting exactly at index.
func (x *IntervalIndex) KeyAtStart(index int) (GroupKey, bool) {
	key, ok := x.byStart[index]
	return key, ok
}

// Len is the number of ranges.
func (x *IntervalIndex) Len() int {
	return len(x.spans)
}

// Ranges returns all ranges in ascending order.
func (x *IntervalIndex) Ranges() []Range {
	out := make([]Range, len(x.spans))
	for i, s := range x.spans {
		out[i] = s.rng
	}
	return out
}
