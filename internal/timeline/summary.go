package timeline

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tOgg1/foldline/internal/matrix"
)

// Defaults for the two independent summary thresholds.
const (
	DefaultMinGroupSize           = 3
	DefaultMaxNamesBeforeCoalesce = 4
	DefaultMaxAvatars             = 5
)

// TransitionCount is a run of identical transitions after merging.
type TransitionCount struct {
	Kind  TransitionKind
	Count int
}

type phrase struct {
	singular string
	plural   string
}

// Phrases for ConfigureRoom and VirtualTimelineItem are empty: they never show up in text.
var transitionPhrases = map[TransitionKind]phrase{
	CreateRoom:         {"created and configured the room", "created and configured the room"},
	Joined:             {"joined", "joined"},
	Left:               {"left", "left"},
	JoinedAndLeft:      {"joined and left", "joined and left"},
	LeftAndJoined:      {"left and rejoined", "left and rejoined"},
	InvitationRejected: {"rejected their invitation", "rejected their invitations"},
	InvitationRevoked:  {"had their invitation revoked", "had their invitations revoked"},
	Invited:            {"was invited", "were invited"},
	Banned:             {"was banned", "were banned"},
	Unbanned:           {"was unbanned", "were unbanned"},
	Kicked:             {"was removed", "were removed"},
	ChangedName:        {"changed their name", "changed their names"},
	ChangedAvatar:      {"changed their avatar", "changed their avatars"},
	NoChange:           {"made no changes", "made no changes"},
	ServerACL:          {"changed the server access control list", "changed the server access control list"},
	ChangedPins:        {"changed the pinned messages", "changed the pinned messages"},
	MessageRemoved:     {"had a message removed", "had messages removed"},
	UnableToDecrypt:    {"sent a message that could not be decrypted", "sent messages that could not be decrypted"},
	HiddenEvent:        {"sent a hidden event", "sent hidden events"},
}

// TransitionText renders one coalesced transition. userCount selects the plural subject form
// and repeats above one appends a "×N" suffix.
func TransitionText(kind TransitionKind, repeats, userCount int) string {
	p, ok := transitionPhrases[kind]
	if !ok {
		return ""
	}
	text := p.singular
	if userCount > 1 {
		text = p.plural
	}
	if text == "" {
		return ""
	}
	if repeats > 1 {
		text += " ×" + strconv.Itoa(repeats)
	}
	return text
}

// MergeAdjacentTransitions folds join/leave pairs in a single non-overlapping left-to-right
// pass: [Joined, Left] becomes JoinedAndLeft and [Left, Joined] becomes LeftAndJoined.
func MergeAdjacentTransitions(kinds []TransitionKind) []TransitionKind {
	out := make([]TransitionKind, 0, len(kinds))
	for i := 0; i < len(kinds); i++ {
		if i+1 < len(kinds) {
			switch {
			case kinds[i] == Joined && kinds[i+1] == Left:
				out = append(out, JoinedAndLeft)
				i++
				continue
			case kinds[i] == Left && kinds[i+1] == Joined:
				out = append(out, LeftAndJoined)
				i++
				continue
			}
		}
		out = append(out, kinds[i])
	}
	return out
}

// GroupRepeatedTransitions collapses consecutive identical kinds into counts.
func GroupRepeatedTransitions(kinds []TransitionKind) []TransitionCount {
	var out []TransitionCount
	for _, kind := range kinds {
		if n := len(out); n > 0 && out[n-1].Kind == kind {
			out[n-1].Count++
			continue
		}
		out = append(out, TransitionCount{Kind: kind, Count: 1})
	}
	return out
}

// FormatNameList joins names as an Oxford-comma list. Past maxNames, the first maxNames
// names are listed followed by "and N others", whatever N is.
func FormatNameList(names []string, maxNames int) string {
	if maxNames < 1 {
		maxNames = DefaultMaxNamesBeforeCoalesce
	}
	switch n := len(names); {
	case n == 0:
		return ""
	case n == 1:
		return names[0]
	case n == 2:
		return names[0] + " and " + names[1]
	case n <= maxNames:
		return strings.Join(names[:n-1], ", ") + ", and " + names[n-1]
	default:
		return fmt.Sprintf("%s, and %d others", strings.Join(names[:maxNames], ", "), n-maxNames)
	}
}

// userTimeline is one user's events in index order.
type userTimeline struct {
	user   matrix.UserID
	events []UserEvent
}

// orderedUsers returns users sorted by their earliest event index, with each user's events
// sorted by index. Ties fall back to the user id so output never depends on map order.
func orderedUsers(userEvents map[matrix.UserID][]UserEvent) []userTimeline {
	users := make([]userTimeline, 0, len(userEvents))
	for user, events := range userEvents {
		if len(events) == 0 {
			continue
		}
		sorted := append([]UserEvent(nil), events...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Index < sorted[j].Index
		})
		users = append(users, userTimeline{user: user, events: sorted})
	}
	sort.SliceStable(users, func(i, j int) bool {
		a, b := users[i].events[0].Index, users[j].events[0].Index
		if a != b {
			return a < b
		}
		return users[i].user < users[j].user
	})
	return users
}

func (u userTimeline) displayName() string {
	for _, ev := range u.events {
		if name := strings.TrimSpace(ev.DisplayName); name != "" {
			return name
		}
	}
	return u.user.String()
}

// mergedTransitions returns the user's transitions with join/leave pairs merged. A creator
// is implicitly joined, so Joined entries are dropped when CreateRoom is present.
func (u userTimeline) mergedTransitions() []TransitionKind {
	kinds := make([]TransitionKind, 0, len(u.events))
	created := false
	for _, ev := range u.events {
		if ev.Transition == CreateRoom {
			created = true
		}
	}
	for _, ev := range u.events {
		if ev.Transition == VirtualTimelineItem {
			continue
		}
		if created && ev.Transition == Joined {
			continue
		}
		kinds = append(kinds, ev.Transition)
	}
	return MergeAdjacentTransitions(kinds)
}

func transitionsKey(kinds []TransitionKind) string {
	var b strings.Builder
	for i, k := range kinds {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(k)))
	}
	return b.String()
}

type summaryBucket struct {
	transitions []TransitionKind
	names       []string
}

// GenerateSummary renders the summary line for a group. Users sharing an identical merged
// transition sequence share one phrase. Users whose transitions all render empty are left out.
func GenerateSummary(userEvents map[matrix.UserID][]UserEvent, maxNames int) string {
	var buckets []*summaryBucket
	byKey := make(map[string]*summaryBucket)

	for _, u := range orderedUsers(userEvents) {
		merged := u.mergedTransitions()
		if len(merged) == 0 {
			continue
		}
		key := transitionsKey(merged)
		bucket, ok := byKey[key]
		if !ok {
			bucket = &summaryBucket{transitions: merged}
			byKey[key] = bucket
			buckets = append(buckets, bucket)
		}
		bucket.names = append(bucket.names, u.displayName())
	}

	phrases := make([]string, 0, len(buckets))
	for _, bucket := range buckets {
		var parts []string
		for _, tc := range GroupRepeatedTransitions(bucket.transitions) {
			if text := TransitionText(tc.Kind, tc.Count, len(bucket.names)); text != "" {
				parts = append(parts, text)
			}
		}
		if len(parts) == 0 {
			continue
		}
		phrases = append(phrases, FormatNameList(bucket.names, maxNames)+" "+strings.Join(parts, ", "))
	}
	return strings.Join(phrases, ", ")
}

// AvatarUserIDs lists up to maxAvatars users in order of their first event.
func AvatarUserIDs(userEvents map[matrix.UserID][]UserEvent, maxAvatars int) []matrix.UserID {
	if maxAvatars < 1 {
		maxAvatars = DefaultMaxAvatars
	}
	users := orderedUsers(userEvents)
	out := make([]matrix.UserID, 0, min(len(users), maxAvatars))
	for _, u := range users {
		if len(out) == maxAvatars {
			break
		}
		out = append(out, u.user)
	}
	return out
}
