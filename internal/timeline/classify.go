package timeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tOgg1/foldline/internal/matrix"
)

// minParallelChunk keeps tiny timelines on the sequential path.
const minParallelChunk = 64

// Classify maps every eligible item to a UserEvent. Virtual items are kept as
// VirtualTimelineItem so that downstream indices line up with the timeline; ineligible and
// malformed items are dropped.
func Classify(items []matrix.RawItem) []UserEvent {
	events := make([]UserEvent, 0, len(items))
	for i := range items {
		if ev, ok := ClassifyItem(i, items[i]); ok {
			events = append(events, ev)
		}
	}
	return events
}

// ClassifyParallel is Classify split across workers. Output order matches Classify.
func ClassifyParallel(ctx context.Context, items []matrix.RawItem, workers int) ([]UserEvent, error) {
	if workers <= 1 || len(items) < 2*minParallelChunk {
		return Classify(items), nil
	}

	chunk := (len(items) + workers - 1) / workers
	if chunk < minParallelChunk {
		chunk = minParallelChunk
	}

	type slot struct {
		event UserEvent
		ok    bool
	}
	slots := make([]slot, len(items))

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(items); start += chunk {
		end := min(start+chunk, len(items))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				ev, ok := ClassifyItem(i, items[i])
				slots[i] = slot{event: ev, ok: ok}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	events := make([]UserEvent, 0, len(items))
	for _, s := range slots {
		if s.ok {
			events = append(events, s.event)
		}
	}
	return events, nil
}

// ClassifyItem classifies a single item at position index. ok is false when the item is not
// a small state event.
func ClassifyItem(index int, item matrix.RawItem) (UserEvent, bool) {
	if item.IsVirtual() {
		return UserEvent{Transition: VirtualTimelineItem, Index: index}, true
	}

	ev := UserEvent{
		Index:           index,
		ActingUser:      item.Sender,
		DisplayName:     item.SenderName,
		AffectedUserKey: item.StateKey,
		EventID:         item.EventID,
	}
	// The sender's name never labels an event about someone else.
	if affected, err := matrix.ParseUserID(item.StateKey); err == nil && affected != item.Sender {
		ev.DisplayName = ""
	}

	switch content := item.Content.(type) {
	case *matrix.MembershipChange:
		ev.Transition = membershipTransition(content.Change)
		if content.DisplayName != "" {
			ev.DisplayName = content.DisplayName
		}
	case *matrix.ProfileChange:
		ev.Transition = profileTransition(content)
		if content.DisplayName != "" {
			ev.DisplayName = content.DisplayName
		}
	case *matrix.OtherState:
		ev.Transition = stateTransition(content.Kind)
	case *matrix.MessageLike:
		kind, ok := messageTransition(content.Kind)
		if !ok {
			return UserEvent{}, false
		}
		ev.Transition = kind
	default:
		return UserEvent{}, false
	}
	return ev, true
}

func membershipTransition(change matrix.MembershipKind) TransitionKind {
	switch change {
	case matrix.MembershipJoined, matrix.MembershipInvitationAccepted, matrix.MembershipKnockAccepted:
		return Joined
	case matrix.MembershipLeft:
		return Left
	case matrix.MembershipBanned, matrix.MembershipKickedAndBanned:
		return Banned
	case matrix.MembershipUnbanned:
		return Unbanned
	case matrix.MembershipKicked:
		return Kicked
	case matrix.MembershipInvited:
		return Invited
	case matrix.MembershipInvitationRejected:
		return InvitationRejected
	case matrix.MembershipInvitationRevoked:
		return InvitationRevoked
	case matrix.MembershipKnocked, matrix.MembershipKnockRetracted, matrix.MembershipKnockDenied:
		return HiddenEvent
	default:
		return DefaultTransition
	}
}

// Avatar changes win over name changes when both happen in one event.
func profileTransition(change *matrix.ProfileChange) TransitionKind {
	switch {
	case change.AvatarChanged:
		return ChangedAvatar
	case change.NameChanged:
		return ChangedName
	default:
		return NoChange
	}
}

func stateTransition(kind matrix.StateKind) TransitionKind {
	switch kind {
	case matrix.StateRoomCreate:
		return CreateRoom
	case matrix.StateServerACL:
		return ServerACL
	case matrix.StateCustom:
		return HiddenEvent
	default:
		return ConfigureRoom
	}
}

func messageTransition(kind matrix.MessageKind) (TransitionKind, bool) {
	switch kind {
	case matrix.MessageRedacted:
		return MessageRemoved, true
	case matrix.MessageUndecryptable:
		return UnableToDecrypt, true
	case matrix.MessagePoll:
		return NoChange, true
	default:
		return 0, false
	}
}
