package timeline

import (
	"fmt"

	"github.com/tOgg1/foldline/internal/matrix"
)

func userID(name string) matrix.UserID {
	return matrix.UserID("@" + name + ":example.org")
}

// ev builds a classified event sent by name, with a real event id.
func ev(index int, kind TransitionKind, name string) UserEvent {
	return UserEvent{
		Transition:  kind,
		Index:       index,
		ActingUser:  userID(name),
		DisplayName: capitalize(name),
		EventID:     matrix.EventID(fmt.Sprintf("$ev%d", index)),
	}
}

func virtualEv(index int) UserEvent {
	return UserEvent{Transition: VirtualTimelineItem, Index: index}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

func userEventsOf(events ...UserEvent) map[matrix.UserID][]UserEvent {
	out := make(map[matrix.UserID][]UserEvent)
	for _, e := range events {
		user, _ := e.EffectiveUser()
		out[user] = append(out[user], e)
	}
	return out
}
