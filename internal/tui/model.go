// Package tui provides the fold/expand timeline viewer.
package tui

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tOgg1/foldline/internal/matrix"
	"github.com/tOgg1/foldline/internal/timeline"
)

// Config configures the viewer.
type Config struct {
	Title        string
	Items        []matrix.RawItem
	Engine       *timeline.Engine
	ExpandAll    bool
	ShowEventIDs bool
}

type rowKind int

const (
	rowItem rowKind = iota
	rowGroup
)

type row struct {
	kind  rowKind
	index int
	group *timeline.Group
}

// Model is the bubbletea model of the viewer. Collapsed groups render as their summary line;
// expanded groups render the summary followed by every item of the group.
type Model struct {
	title        string
	items        []matrix.RawItem
	engine       *timeline.Engine
	avatars      *avatarStyles
	showEventIDs bool

	allExpanded bool
	expanded    map[timeline.GroupKey]bool

	rows     []row
	selected int
	top      int
	width    int
	height   int
}

// NewModel recomputes the groups of cfg.Items and returns a viewer positioned at the top.
func NewModel(cfg Config) (*Model, error) {
	if cfg.Engine == nil {
		return nil, errors.New("timeline engine is required")
	}
	title := cfg.Title
	if title == "" {
		title = "timeline"
	}

	m := &Model{
		title:        title,
		items:        cfg.Items,
		engine:       cfg.Engine,
		avatars:      newAvatarStyles(),
		showEventIDs: cfg.ShowEventIDs,
		allExpanded:  cfg.ExpandAll,
		expanded:     make(map[timeline.GroupKey]bool),
	}
	m.engine.Recompute(m.items)
	m.buildRows()
	return m, nil
}

// Run launches the viewer on the alternate screen.
func Run(cfg Config) error {
	model, err := NewModel(cfg)
	if err != nil {
		return err
	}
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	return err
}

// SetItems replaces the timeline and recomputes groups. Fold state is kept per group key.
func (m *Model) SetItems(items []matrix.RawItem) {
	m.items = items
	m.engine.Recompute(items)
	m.buildRows()
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ensureVisible()
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "j", "down":
			m.move(1)
		case "k", "up":
			m.move(-1)
		case "g", "home":
			m.selected = 0
			m.ensureVisible()
		case "G", "end":
			m.selected = len(m.rows) - 1
			m.ensureVisible()
		case "enter", " ":
			m.toggleSelected()
		case "e":
			m.toggleAll()
		}
	}
	return m, nil
}

func (m *Model) isExpanded(key timeline.GroupKey) bool {
	if v, ok := m.expanded[key]; ok {
		return v
	}
	return m.allExpanded
}

func (m *Model) buildRows() {
	rows := make([]row, 0, len(m.items))
	for i := 0; i < len(m.items); {
		state := m.engine.ItemState(i)
		if state.Placement != timeline.GroupHeader {
			rows = append(rows, row{kind: rowItem, index: i})
			i++
			continue
		}

		g := state.Group
		rows = append(rows, row{kind: rowGroup, index: i, group: g})
		end := min(state.Range.End, len(m.items))
		if m.isExpanded(g.Key()) {
			for j := state.Range.Start; j < end; j++ {
				rows = append(rows, row{kind: rowItem, index: j, group: g})
			}
		}
		i = end
	}
	m.rows = rows
	m.clampSelection()
}

func (m *Model) move(delta int) {
	m.selected += delta
	m.clampSelection()
}

func (m *Model) clampSelection() {
	if m.selected >= len(m.rows) {
		m.selected = len(m.rows) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
	m.ensureVisible()
}

// toggleSelected folds or unfolds the group under the cursor, leaving the cursor on its header.
func (m *Model) toggleSelected() {
	if m.selected >= len(m.rows) {
		return
	}
	g := m.rows[m.selected].group
	if g == nil {
		return
	}
	key := g.Key()
	m.expanded[key] = !m.isExpanded(key)
	m.buildRows()
	for i, r := range m.rows {
		if r.kind == rowGroup && r.group.Key() == key {
			m.selected = i
			break
		}
	}
	m.ensureVisible()
}

func (m *Model) toggleAll() {
	var anchor int
	if m.selected < len(m.rows) {
		anchor = m.rows[m.selected].index
	}
	m.allExpanded = !m.allExpanded
	clear(m.expanded)
	m.buildRows()
	for i, r := range m.rows {
		if r.index >= anchor {
			m.selected = i
			break
		}
	}
	m.ensureVisible()
}

func (m *Model) pageSize() int {
	if m.height <= 0 {
		return len(m.rows)
	}
	// title and footer
	return max(m.height-2, 1)
}

func (m *Model) ensureVisible() {
	size := m.pageSize()
	if m.selected < m.top {
		m.top = m.selected
	}
	if size > 0 && m.selected >= m.top+size {
		m.top = m.selected - size + 1
	}
	if m.top < 0 {
		m.top = 0
	}
}
