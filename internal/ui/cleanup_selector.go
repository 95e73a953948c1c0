package ui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/vietdv277/tierctl/pkg/types"
)

// ErrCancelled is returned when the operator leaves the selector
var ErrCancelled = errors.New("selection cancelled")

const (
	listHeight = 10
	minWidth   = 60
	maxWidth   = 120
	// Fixed column widths
	colWidthMark = 6
	colWidthKind = 18
)

// CleanupModel is the bubbletea model for choosing which created
// resources to delete. Every resource starts selected.
type CleanupModel struct {
	resources    []types.Resource
	filtered     []int // indexes into resources
	chosen       map[int]bool
	cursor       int
	offset       int // for scrolling
	search       string
	confirmed    bool
	quitting     bool
	cancelled    bool
	termWidth    int
	contentWidth int
}

// NewCleanupModel creates a selector over resources
func NewCleanupModel(resources []types.Resource) CleanupModel {
	m := CleanupModel{
		resources: resources,
		chosen:    make(map[int]bool, len(resources)),
		termWidth: 80, // default
	}
	for i := range resources {
		m.chosen[i] = true
	}
	m.filter()
	m.calculateWidth()
	return m
}

func (m *CleanupModel) calculateWidth() {
	m.contentWidth = m.termWidth - 2
	if m.contentWidth < minWidth {
		m.contentWidth = minWidth
	}
	if m.contentWidth > maxWidth {
		m.contentWidth = maxWidth
	}
}

// Init implements tea.Model
func (m CleanupModel) Init() tea.Cmd {
	return tea.WindowSize()
}

// Update implements tea.Model
func (m CleanupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.termWidth = msg.Width
		m.calculateWidth()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			m.cancelled = true
			return m, tea.Quit

		case tea.KeyEnter:
			m.confirmed = true
			m.quitting = true
			return m, tea.Quit

		case tea.KeySpace:
			if len(m.filtered) > 0 {
				idx := m.filtered[m.cursor]
				m.chosen[idx] = !m.chosen[idx]
			}

		case tea.KeyCtrlA:
			all := !m.allChosen()
			for _, idx := range m.filtered {
				m.chosen[idx] = all
			}

		case tea.KeyUp:
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}

		case tea.KeyDown:
			if m.cursor < len(m.filtered)-1 {
				m.cursor++
				if m.cursor >= m.offset+listHeight {
					m.offset = m.cursor - listHeight + 1
				}
			}

		case tea.KeyBackspace:
			if len(m.search) > 0 {
				m.search = m.search[:len(m.search)-1]
				m.filter()
			}

		case tea.KeyRunes:
			m.search += string(msg.Runes)
			m.filter()
		}
	}

	return m, nil
}

func (m CleanupModel) allChosen() bool {
	for _, idx := range m.filtered {
		if !m.chosen[idx] {
			return false
		}
	}
	return true
}

// filter narrows the list to resources whose kind, name or id match the search
func (m *CleanupModel) filter() {
	query := strings.ToLower(m.search)
	m.filtered = nil
	for i, r := range m.resources {
		if query == "" ||
			strings.Contains(strings.ToLower(string(r.Kind)), query) ||
			strings.Contains(strings.ToLower(r.Name), query) ||
			strings.Contains(strings.ToLower(r.ID), query) {
			m.filtered = append(m.filtered, i)
		}
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = max(len(m.filtered)-1, 0)
	}
	m.offset = 0
}

// Selected returns the chosen resources in manifest order
func (m CleanupModel) Selected() []types.Resource {
	var out []types.Resource
	for i, r := range m.resources {
		if m.chosen[i] {
			out = append(out, r)
		}
	}
	return out
}

// View implements tea.Model
func (m CleanupModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	w := m.contentWidth

	line := func(s string, render func(...string) string) {
		sb.WriteString(BorderStyle.Render(Vertical))
		sb.WriteString(render(padRight(s, w)))
		sb.WriteString(BorderStyle.Render(Vertical))
		sb.WriteString("\n")
	}

	sb.WriteString(BorderStyle.Render(TopLeft + strings.Repeat(Horizontal, w) + TopRight))
	sb.WriteString("\n")

	line(" > "+m.search, NameStyle.Render)
	line("", MutedStyle.Render)

	end := min(m.offset+listHeight, len(m.filtered))
	for i := m.offset; i < end; i++ {
		sb.WriteString(m.renderRow(i))
	}
	for i := end - m.offset; i < listHeight; i++ {
		line("", MutedStyle.Render)
	}

	sb.WriteString(BorderStyle.Render(BottomLeft + strings.Repeat(Horizontal, w) + BottomRight))
	sb.WriteString("\n")

	sb.WriteString(m.renderStatusBar())

	return sb.String()
}

func (m CleanupModel) renderRow(pos int) string {
	idx := m.filtered[pos]
	r := m.resources[idx]
	w := m.contentWidth

	cursor := "   "
	if pos == m.cursor {
		cursor = " > "
	}
	mark := "[ ]"
	markStyle := ReusedStyle
	if m.chosen[idx] {
		mark = "[x]"
		markStyle = FailedStyle
	}

	nameWidth := max(w-3-colWidthMark-colWidthKind-2, 10)

	var sb strings.Builder
	sb.WriteString(BorderStyle.Render(Vertical))
	sb.WriteString(cursor)
	sb.WriteString(markStyle.Render(padRight(mark, colWidthMark)))
	sb.WriteString(KindStyle.Render(padRight(string(r.Kind), colWidthKind)))
	sb.WriteString("  ")
	sb.WriteString(NameStyle.Render(padRight(r.Name, nameWidth)))
	sb.WriteString(BorderStyle.Render(Vertical))
	sb.WriteString("\n")
	return sb.String()
}

func (m CleanupModel) renderStatusBar() string {
	w := m.contentWidth + 2

	countInfo := fmt.Sprintf("  %d/%d selected for deletion", len(m.Selected()), len(m.resources))
	hints := "[Space:toggle] [Ctrl+A:all] [Enter:delete] [Esc:cancel]"

	padding := w - runewidth.StringWidth(countInfo) - runewidth.StringWidth(hints)
	if padding < 1 {
		padding = 1
	}
	return countInfo + strings.Repeat(" ", padding) + HintStyle.Render(hints) + "\n"
}

// SelectForCleanup lets the operator choose which resources to delete
func SelectForCleanup(resources []types.Resource) ([]types.Resource, error) {
	if len(resources) == 0 {
		return nil, fmt.Errorf("no created resources in manifest")
	}

	p := tea.NewProgram(NewCleanupModel(resources))

	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("error running selector: %w", err)
	}

	result := finalModel.(CleanupModel)
	if result.cancelled || !result.confirmed {
		return nil, ErrCancelled
	}

	return result.Selected(), nil
}
