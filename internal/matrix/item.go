package matrix

// ItemKind distinguishes real events from virtual timeline markers.
type ItemKind int

const (
	ItemEvent ItemKind = iota
	ItemVirtual
)

// VirtualKind names a virtual (non-event) timeline marker.
type VirtualKind string

const (
	VirtualDayDivider    VirtualKind = "day_divider"
	VirtualReadMarker    VirtualKind = "read_marker"
	VirtualTimelineStart VirtualKind = "timeline_start"
)

// RawItem is one entry of a room's flattened timeline, as produced by the timeline collaborator.
// Exactly one of Virtual or Content is meaningful, depending on Kind.
type RawItem struct {
	Kind    ItemKind
	Virtual VirtualKind

	EventID    EventID
	Sender     UserID
	SenderName string
	// StateKey is the raw state key for state events, empty otherwise.
	StateKey string

	Content Content
}

// IsVirtual reports whether the item is a virtual marker.
func (r RawItem) IsVirtual() bool {
	return r.Kind == ItemVirtual
}

// Content is the event-specific payload of a RawItem. The set of implementations is closed.
type Content interface {
	isContent()
}

// MembershipKind is the transition derived by diffing a member event against its previous state.
type MembershipKind int

const (
	MembershipNone MembershipKind = iota
	MembershipError
	MembershipJoined
	MembershipLeft
	MembershipBanned
	MembershipUnbanned
	MembershipKicked
	MembershipKickedAndBanned
	MembershipInvited
	MembershipInvitationAccepted
	MembershipInvitationRejected
	MembershipInvitationRevoked
	MembershipKnocked
	MembershipKnockAccepted
	MembershipKnockRetracted
	MembershipKnockDenied
	MembershipNotImplemented
)

var membershipNames = map[MembershipKind]string{
	MembershipNone:               "none",
	MembershipError:              "error",
	MembershipJoined:             "joined",
	MembershipLeft:               "left",
	MembershipBanned:             "banned",
	MembershipUnbanned:           "unbanned",
	MembershipKicked:             "kicked",
	MembershipKickedAndBanned:    "kicked_and_banned",
	MembershipInvited:            "invited",
	MembershipInvitationAccepted: "invitation_accepted",
	MembershipInvitationRejected: "invitation_rejected",
	MembershipInvitationRevoked:  "invitation_revoked",
	MembershipKnocked:            "knocked",
	MembershipKnockAccepted:      "knock_accepted",
	MembershipKnockRetracted:     "knock_retracted",
	MembershipKnockDenied:        "knock_denied",
	MembershipNotImplemented:     "not_implemented",
}

func (k MembershipKind) String() string {
	if name, ok := membershipNames[k]; ok {
		return name
	}
	return "unknown"
}

// MembershipChange is an m.room.member event that changed membership.
type MembershipChange struct {
	Change MembershipKind
	// UserID is the member the event is about (the state key), when it parses.
	UserID      UserID
	DisplayName string
}

// ProfileChange is an m.room.member event where membership stayed "join".
type ProfileChange struct {
	UserID         UserID
	DisplayName    string
	NameChanged    bool
	AvatarChanged  bool
	OldDisplayName string
}

// StateKind buckets generic room state events.
type StateKind int

const (
	StateOther StateKind = iota
	StateRoomCreate
	StateServerACL
	StateCustom
)

// OtherState is any room state event that is not about membership.
type OtherState struct {
	Kind      StateKind
	EventType string
}

// MessageKind buckets message-like events.
type MessageKind int

const (
	MessageOther MessageKind = iota
	MessageText
	MessageReaction
	MessageSticker
	MessagePoll
	MessageRedacted
	MessageUndecryptable
)

// MessageLike is a non-state event.
type MessageLike struct {
	Kind      MessageKind
	EventType string
}

func (*MembershipChange) isContent() {}
func (*ProfileChange) isContent()    {}
func (*OtherState) isContent()       {}
func (*MessageLike) isContent()      {}
