package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tOgg1/foldline/internal/matrix"
)

// Matrix clients pick a username color by hashing the full user id into eight slots, so a
// user keeps the same color in every room and every client.
var usernameColors = [...]lipgloss.Color{
	"#368bd6", "#ac3ba8", "#03b381", "#e64f7a",
	"#ff812d", "#2dc2c5", "#5c56f5", "#74d12c",
}

var badgeText = lipgloss.Color("#ffffff")

// usernameColorSlot is |h| mod 8 where h is the 31-multiplier string hash of id, computed
// with 32-bit wraparound.
func usernameColorSlot(id matrix.UserID) int {
	var h int32
	for _, r := range string(id) {
		h = h*31 + int32(r)
	}
	n := int64(h)
	if n < 0 {
		n = -n
	}
	return int(n % int64(len(usernameColors)))
}

func usernameColor(id matrix.UserID) lipgloss.Color {
	return usernameColors[usernameColorSlot(id)]
}

// avatarStyles caches per-user styles. Update and View run on one goroutine, so no locking.
type avatarStyles struct {
	names  map[matrix.UserID]lipgloss.Style
	badges map[matrix.UserID]lipgloss.Style
}

func newAvatarStyles() *avatarStyles {
	return &avatarStyles{
		names:  make(map[matrix.UserID]lipgloss.Style),
		badges: make(map[matrix.UserID]lipgloss.Style),
	}
}

// name styles a display name in the user's color.
func (s *avatarStyles) name(id matrix.UserID) lipgloss.Style {
	style, ok := s.names[id]
	if !ok {
		style = lipgloss.NewStyle().Foreground(usernameColor(id)).Bold(true)
		s.names[id] = style
	}
	return style
}

// badge renders the one-letter avatar used in group headers.
func (s *avatarStyles) badge(id matrix.UserID) string {
	style, ok := s.badges[id]
	if !ok {
		style = lipgloss.NewStyle().Foreground(badgeText).Background(usernameColor(id)).Bold(true)
		s.badges[id] = style
	}
	return style.Render(avatarInitial(id))
}

// avatarInitial is the first letter of the localpart, the fallback Matrix clients show for
// users without an avatar image.
func avatarInitial(id matrix.UserID) string {
	local := id.Localpart()
	if local == "" {
		return "?"
	}
	return strings.ToUpper(string([]rune(local)[:1]))
}
