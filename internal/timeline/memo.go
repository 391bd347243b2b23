package timeline

import (
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tOgg1/foldline/internal/matrix"
)

type memoEntry struct {
	summary string
	avatars []matrix.UserID
}

// summaryMemo remembers rendered summaries by membership signature, so groups that survive a
// rebuild unchanged (or shift position) skip text generation.
type summaryMemo struct {
	cache  *lru.Cache[string, memoEntry]
	hits   int
	misses int
}

func newSummaryMemo(size int) (*summaryMemo, error) {
	if size <= 0 {
		return nil, nil
	}
	cache, err := lru.New[string, memoEntry](size)
	if err != nil {
		return nil, err
	}
	return &summaryMemo{cache: cache}, nil
}

func (m *summaryMemo) get(signature string) (memoEntry, bool) {
	entry, ok := m.cache.Get(signature)
	if ok {
		m.hits++
	} else {
		m.misses++
	}
	return entry, ok
}

func (m *summaryMemo) put(signature string, entry memoEntry) {
	m.cache.Add(signature, entry)
}

// takeStats returns and resets the hit/miss counters.
func (m *summaryMemo) takeStats() (hits, misses int) {
	hits, misses = m.hits, m.misses
	m.hits, m.misses = 0, 0
	return hits, misses
}

// membershipSignature captures everything GenerateSummary and AvatarUserIDs read: the user
// order, each user's transitions and display names, and the two limits.
func membershipSignature(userEvents map[matrix.UserID][]UserEvent, maxNames, maxAvatars int) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(maxNames))
	b.WriteByte('/')
	b.WriteString(strconv.Itoa(maxAvatars))
	for _, u := range orderedUsers(userEvents) {
		b.WriteByte('\x1e')
		b.WriteString(u.user.String())
		for _, ev := range u.events {
			b.WriteByte('\x1f')
			b.WriteString(strconv.Itoa(int(ev.Transition)))
			b.WriteByte(':')
			b.WriteString(ev.DisplayName)
		}
	}
	return b.String()
}
