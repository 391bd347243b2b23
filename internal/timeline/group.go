package timeline

import (
	"fmt"

	"github.com/tOgg1/foldline/internal/matrix"
)

// GroupKey identifies a group across rebuilds. It is the event id of the group's first event
// when there is one; otherwise it is synthesized from the group's range so that rebuilding an
// unchanged timeline yields the same key.
type GroupKey struct {
	EventID matrix.EventID
	Start   int
	End     int
}

func eventGroupKey(id matrix.EventID) GroupKey {
	return GroupKey{EventID: id}
}

func syntheticGroupKey(r Range) GroupKey {
	return GroupKey{Start: r.Start, End: r.End}
}

// Synthetic reports whether the key was derived from a range.
func (k GroupKey) Synthetic() bool {
	return k.EventID == ""
}

func (k GroupKey) String() string {
	if k.Synthetic() {
		return fmt.Sprintf("range:%d-%d", k.Start, k.End)
	}
	return k.EventID.String()
}

// Group is a contiguous run of small state events folded into one unit. Its summary and avatar
// list are computed together by Refresh and cleared together on any membership change.
type Group struct {
	key          GroupKey
	rng          Range
	roomCreation bool
	creator      matrix.UserID
	userEvents   map[matrix.UserID][]UserEvent
	size         int

	maxNames   int
	maxAvatars int
	memo       *summaryMemo

	cached        bool
	summary       string
	avatarUserIDs []matrix.UserID
}

func newGroup(key GroupKey, opts Options, memo *summaryMemo) *Group {
	return &Group{
		key:        key,
		userEvents: make(map[matrix.UserID][]UserEvent),
		maxNames:   opts.MaxNamesBeforeCoalesce,
		maxAvatars: opts.MaxAvatars,
		memo:       memo,
	}
}

// Key returns the group's stable key.
func (g *Group) Key() GroupKey { return g.key }

// Range returns the covered timeline indices.
func (g *Group) Range() Range { return g.rng }

// Size is the number of events in the run.
func (g *Group) Size() int { return g.size }

// IsRoomCreation reports whether this group is the room-creation run.
func (g *Group) IsRoomCreation() bool { return g.roomCreation }

// Creator is the room creator for room-creation groups, empty otherwise.
func (g *Group) Creator() matrix.UserID { return g.creator }

// UserEvents returns a copy of the per-user event lists.
func (g *Group) UserEvents() map[matrix.UserID][]UserEvent {
	out := make(map[matrix.UserID][]UserEvent, len(g.userEvents))
	for user, events := range g.userEvents {
		out[user] = append([]UserEvent(nil), events...)
	}
	return out
}

// CachedSummary returns the summary computed by the last Refresh.
func (g *Group) CachedSummary() (string, bool) {
	return g.summary, g.cached
}

// CachedAvatarUserIDs returns the avatar list computed by the last Refresh.
func (g *Group) CachedAvatarUserIDs() ([]matrix.UserID, bool) {
	if !g.cached {
		return nil, false
	}
	return append([]matrix.UserID(nil), g.avatarUserIDs...), true
}

// reset prepares a reused group for a new run, dropping membership and caches.
func (g *Group) reset(r Range, roomCreation bool, creator matrix.UserID) {
	g.rng = r
	g.roomCreation = roomCreation
	g.creator = creator
	g.size = 0
	clear(g.userEvents)
	g.invalidate()
}

func (g *Group) invalidate() {
	g.cached = false
	g.summary = ""
	g.avatarUserIDs = nil
}

// addEvent files ev under its effective user. Re-adding an index already filed for that user
// is a no-op. Events with no resolvable user still count toward the run size.
func (g *Group) addEvent(ev UserEvent) {
	user, ok := ev.EffectiveUser()
	if !ok {
		g.size++
		return
	}
	for _, existing := range g.userEvents[user] {
		if existing.Index == ev.Index {
			return
		}
	}
	g.size++
	g.userEvents[user] = append(g.userEvents[user], ev)
	g.invalidate()
}

// Refresh recomputes the summary and avatar list from the current membership.
func (g *Group) Refresh() {
	signature := ""
	if g.memo != nil {
		signature = membershipSignature(g.userEvents, g.maxNames, g.maxAvatars)
		if entry, ok := g.memo.get(signature); ok {
			g.summary = entry.summary
			g.avatarUserIDs = append([]matrix.UserID(nil), entry.avatars...)
			g.cached = true
			return
		}
	}

	summary := GenerateSummary(g.userEvents, g.maxNames)
	avatars := AvatarUserIDs(g.userEvents, g.maxAvatars)

	g.summary = summary
	g.avatarUserIDs = avatars
	g.cached = true

	if g.memo != nil {
		g.memo.put(signature, memoEntry{summary: summary, avatars: avatars})
	}
}
