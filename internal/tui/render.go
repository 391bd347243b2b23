package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tOgg1/foldline/internal/matrix"
	"github.com/tOgg1/foldline/internal/timeline"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("75"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	summaryStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Italic(true)
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("237"))
)

const footerHelp = "j/k move  enter fold/unfold  e all  q quit"

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s  (%d items, %d groups)", m.title, len(m.items), m.engine.Index().Len())))
	b.WriteByte('\n')

	end := min(m.top+m.pageSize(), len(m.rows))
	for i := m.top; i < end; i++ {
		line := m.renderRow(m.rows[i])
		if i == m.selected {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	b.WriteString(footerStyle.Render(footerHelp))
	return b.String()
}

func (m *Model) renderRow(r row) string {
	if r.kind == rowGroup {
		return m.renderGroup(r.group)
	}
	line := m.describeItem(m.items[r.index])
	if r.group != nil {
		line = "  " + line
	}
	if m.showEventIDs {
		if id := m.items[r.index].EventID; id != "" {
			line += " " + mutedStyle.Render(id.String())
		}
	}
	return line
}

func (m *Model) renderGroup(g *timeline.Group) string {
	marker := "▸"
	if m.isExpanded(g.Key()) {
		marker = "▾"
	}
	summary, ok := g.CachedSummary()
	if !ok {
		g.Refresh()
		summary, _ = g.CachedSummary()
	}

	var b strings.Builder
	b.WriteString(marker)
	b.WriteByte(' ')
	if avatars, ok := g.CachedAvatarUserIDs(); ok {
		for _, id := range avatars {
			b.WriteString(m.avatars.badge(id))
		}
		if len(avatars) > 0 {
			b.WriteByte(' ')
		}
	}
	b.WriteString(summaryStyle.Render(summary))
	b.WriteString(mutedStyle.Render(fmt.Sprintf(" (%d events)", g.Size())))
	return b.String()
}

func senderName(item matrix.RawItem) string {
	if item.SenderName != "" {
		return item.SenderName
	}
	if local := item.Sender.Localpart(); local != "" {
		return local
	}
	return item.Sender.String()
}

func (m *Model) describeItem(item matrix.RawItem) string {
	if item.IsVirtual() {
		return mutedStyle.Render("── " + strings.ReplaceAll(string(item.Virtual), "_", " ") + " ──")
	}

	name := senderName(item)
	who := m.avatars.name(item.Sender).Render(name)

	switch c := item.Content.(type) {
	case *matrix.MembershipChange:
		target := c.DisplayName
		if target == "" && c.UserID != "" {
			target = c.UserID.Localpart()
		}
		if target == "" {
			target = name
		}
		affected := c.UserID
		if affected == "" {
			affected = item.Sender
		}
		return m.avatars.name(affected).Render(target) + " " + strings.ReplaceAll(c.Change.String(), "_", " ")
	case *matrix.ProfileChange:
		switch {
		case c.NameChanged && c.DisplayName != "":
			return fmt.Sprintf("%s changed their name to %s", who, c.DisplayName)
		case c.NameChanged:
			return who + " removed their display name"
		case c.AvatarChanged:
			return who + " changed their avatar"
		}
		return who + " updated their profile"
	case *matrix.OtherState:
		return fmt.Sprintf("%s set %s", who, c.EventType)
	case *matrix.MessageLike:
		switch c.Kind {
		case matrix.MessageRedacted:
			return who + mutedStyle.Render(" message deleted")
		case matrix.MessageUndecryptable:
			return who + mutedStyle.Render(" unable to decrypt")
		}
		return fmt.Sprintf("%s: %s", who, c.EventType)
	}
	return who
}
