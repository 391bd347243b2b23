package matrix

// Membership states as they appear in m.room.member content.
const (
	membershipJoin   = "join"
	membershipLeave  = "leave"
	membershipInvite = "invite"
	membershipBan    = "ban"
	membershipKnock  = "knock"
)

// diffMembership derives the transition between two membership states. An empty prev means
// the member had no previous state in the room. selfAuthored is true when the sender is the
// member the event is about. The join->join case is a profile change and never reaches here.
func diffMembership(prev, cur string, selfAuthored bool) MembershipKind {
	if prev == cur {
		if knownMembership(cur) {
			return MembershipNone
		}
		return MembershipNotImplemented
	}

	switch prev {
	case "", membershipLeave:
		switch cur {
		case membershipJoin:
			return MembershipJoined
		case membershipInvite:
			return MembershipInvited
		case membershipBan:
			return MembershipBanned
		case membershipKnock:
			return MembershipKnocked
		case membershipLeave:
			return MembershipNone
		}
	case membershipJoin:
		switch cur {
		case membershipLeave:
			if selfAuthored {
				return MembershipLeft
			}
			return MembershipKicked
		case membershipBan:
			return MembershipKickedAndBanned
		case membershipInvite, membershipKnock:
			return MembershipError
		}
	case membershipInvite:
		switch cur {
		case membershipJoin:
			return MembershipInvitationAccepted
		case membershipLeave:
			if selfAuthored {
				return MembershipInvitationRejected
			}
			return MembershipInvitationRevoked
		case membershipBan:
			return MembershipBanned
		case membershipKnock:
			return MembershipError
		}
	case membershipBan:
		switch cur {
		case membershipLeave:
			return MembershipUnbanned
		case membershipJoin, membershipInvite, membershipKnock:
			return MembershipError
		}
	case membershipKnock:
		switch cur {
		case membershipInvite:
			return MembershipKnockAccepted
		case membershipLeave:
			if selfAuthored {
				return MembershipKnockRetracted
			}
			return MembershipKnockDenied
		case membershipBan:
			return MembershipBanned
		case membershipJoin:
			return MembershipError
		}
	}
	return MembershipNotImplemented
}

func knownMembership(m string) bool {
	switch m {
	case membershipJoin, membershipLeave, membershipInvite, membershipBan, membershipKnock:
		return true
	default:
		return false
	}
}
