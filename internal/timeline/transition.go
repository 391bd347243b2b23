// Package timeline groups runs of small state events in a room timeline and renders
// human-readable summaries for them.
package timeline

// TransitionKind classifies what a small state event means for the user it is about.
// The declaration order is the stable comparison order.
type TransitionKind int

const (
	CreateRoom TransitionKind = iota + 1
	ConfigureRoom
	Joined
	Left
	JoinedAndLeft
	LeftAndJoined
	InvitationRejected
	InvitationRevoked
	Invited
	Banned
	Unbanned
	Kicked
	ChangedName
	ChangedAvatar
	NoChange
	ServerACL
	ChangedPins
	MessageRemoved
	UnableToDecrypt
	HiddenEvent
	// VirtualTimelineItem marks day dividers and similar markers. It never takes part in
	// grouping or summaries.
	VirtualTimelineItem
)

// DefaultTransition is used for anything that cannot be classified more precisely.
const DefaultTransition = NoChange

var transitionNames = [...]string{
	CreateRoom:          "create_room",
	ConfigureRoom:       "configure_room",
	Joined:              "joined",
	Left:                "left",
	JoinedAndLeft:       "joined_and_left",
	LeftAndJoined:       "left_and_joined",
	InvitationRejected:  "invitation_rejected",
	InvitationRevoked:   "invitation_revoked",
	Invited:             "invited",
	Banned:              "banned",
	Unbanned:            "unbanned",
	Kicked:              "kicked",
	ChangedName:         "changed_name",
	ChangedAvatar:       "changed_avatar",
	NoChange:            "no_change",
	ServerACL:           "server_acl",
	ChangedPins:         "changed_pins",
	MessageRemoved:      "message_removed",
	UnableToDecrypt:     "unable_to_decrypt",
	HiddenEvent:         "hidden_event",
	VirtualTimelineItem: "virtual_timeline_item",
}

func (k TransitionKind) String() string {
	if k < CreateRoom || k > VirtualTimelineItem {
		return "unknown"
	}
	return transitionNames[k]
}
