package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/navtree/pkg/model"
)

// TypePickerModel is the modal that chooses the kind of item to create.
type TypePickerModel struct {
	types         []model.ItemType
	selectedIndex int
	width         int
	height        int
	theme         Theme
}

// NewTypePickerModel creates a picker with initial highlighted. Unknown
// types highlight the first entry.
func NewTypePickerModel(initial model.ItemType, theme Theme) TypePickerModel {
	types := model.AllItemTypes()
	idx := 0
	for i, typ := range types {
		if typ == initial {
			idx = i
			break
		}
	}
	return TypePickerModel{
		types:         types,
		selectedIndex: idx,
		theme:         theme,
	}
}

// SetSize updates the picker dimensions
func (m *TypePickerModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// MoveUp moves selection up
func (m *TypePickerModel) MoveUp() {
	if m.selectedIndex > 0 {
		m.selectedIndex--
	}
}

// MoveDown moves selection down
func (m *TypePickerModel) MoveDown() {
	if m.selectedIndex < len(m.types)-1 {
		m.selectedIndex++
	}
}

// SelectedType returns the highlighted type.
func (m *TypePickerModel) SelectedType() model.ItemType {
	if m.selectedIndex >= 0 && m.selectedIndex < len(m.types) {
		return m.types[m.selectedIndex]
	}
	return ""
}

// View renders the picker overlay centered in its area.
func (m *TypePickerModel) View() string {
	if m.width == 0 {
		m.width = 60
	}
	if m.height == 0 {
		m.height = 20
	}
	t := m.theme

	boxWidth := 30
	if m.width < 40 {
		boxWidth = max(m.width-10, 20)
	}

	var lines []string
	titleStyle := t.Renderer.NewStyle().Foreground(t.Primary).Bold(true)
	lines = append(lines, titleStyle.Render("New Item"), "")

	for i, typ := range m.types {
		selected := i == m.selectedIndex
		style := t.Renderer.NewStyle()
		prefix := "  "
		if selected {
			style = style.Foreground(t.Primary).Bold(true)
			prefix = "> "
		} else {
			style = style.Foreground(t.Base.GetForeground())
		}
		icon, color := t.TypeIcon(typ)
		iconStr := t.Renderer.NewStyle().Foreground(color).Render(icon)
		lines = append(lines, style.Render(prefix)+iconStr+" "+style.Render(formatTypeName(typ)))
	}

	lines = append(lines, "")
	footer := t.Renderer.NewStyle().Foreground(t.Secondary).Italic(true)
	lines = append(lines, footer.Render("j/k: navigate | enter: choose | esc: cancel"))

	box := t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2).
		Width(boxWidth).
		Render(strings.Join(lines, "\n"))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// formatTypeName turns "FOLDER" into "Folder".
func formatTypeName(typ model.ItemType) string {
	s := strings.ToLower(string(typ))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
