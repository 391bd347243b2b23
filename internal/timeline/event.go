package timeline

import "github.com/tOgg1/foldline/internal/matrix"

// UserEvent is the condensed, classified view of one timeline item.
type UserEvent struct {
	Transition TransitionKind
	// Index is the item's position in the current flattened timeline. It is only valid until
	// the timeline changes structurally.
	Index int

	// ActingUser is the sender; empty for virtual items.
	ActingUser  matrix.UserID
	DisplayName string
	// AffectedUserKey is the raw state key, used to recover the user an event is about when
	// that differs from the sender.
	AffectedUserKey string
	// EventID is empty for virtual items and local echoes.
	EventID matrix.EventID
}

// EffectiveUser returns the user the event is about: the parsed state key when it is a valid
// user id, otherwise the sender.
func (e UserEvent) EffectiveUser() (matrix.UserID, bool) {
	if e.AffectedUserKey != "" {
		if id, err := matrix.ParseUserID(e.AffectedUserKey); err == nil {
			return id, true
		}
	}
	if e.ActingUser != "" {
		return e.ActingUser, true
	}
	return "", false
}
