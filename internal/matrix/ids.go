// Package matrix holds the timeline-facing Matrix types consumed by the grouping engine:
// user and event identifiers, raw timeline items, and a decoder for client-format events.
package matrix

import (
	"errors"
	"fmt"
	"strings"
)

// Identifier errors.
var (
	ErrInvalidUserID  = errors.New("invalid user id")
	ErrInvalidEventID = errors.New("invalid event id")
)

// UserID is a fully qualified Matrix user identifier (@localpart:server).
type UserID string

// EventID is a durable Matrix event identifier ($opaque).
type EventID string

// ParseUserID validates s as a Matrix user id.
func ParseUserID(s string) (UserID, error) {
	s = strings.TrimSpace(s)
	if len(s) < 4 || s[0] != '@' {
		return "", fmt.Errorf("%w: %q", ErrInvalidUserID, s)
	}
	sep := strings.IndexByte(s, ':')
	if sep <= 1 || sep == len(s)-1 {
		return "", fmt.Errorf("%w: %q", ErrInvalidUserID, s)
	}
	if strings.ContainsAny(s[1:sep], " \t\n") {
		return "", fmt.Errorf("%w: %q", ErrInvalidUserID, s)
	}
	return UserID(s), nil
}

// Localpart returns the part between '@' and ':'.
func (u UserID) Localpart() string {
	s := string(u)
	if !strings.HasPrefix(s, "@") {
		return s
	}
	if sep := strings.IndexByte(s, ':'); sep > 0 {
		return s[1:sep]
	}
	return s[1:]
}

func (u UserID) String() string { return string(u) }

// ParseEventID validates s as a Matrix event id.
func ParseEventID(s string) (EventID, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '$' || strings.ContainsAny(s, " \t\n") {
		return "", fmt.Errorf("%w: %q", ErrInvalidEventID, s)
	}
	return EventID(s), nil
}

func (e EventID) String() string { return string(e) }
