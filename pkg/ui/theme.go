package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/navtree/pkg/model"
)

// Theme holds the colors and base styles shared by every pane.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Danger    lipgloss.AdaptiveColor

	// Item kinds
	Folder lipgloss.AdaptiveColor
	Page   lipgloss.AdaptiveColor
	Link   lipgloss.AdaptiveColor

	Base       lipgloss.Style
	Selected   lipgloss.Style
	DropMarker lipgloss.Style
}

// DefaultTheme returns the Dracula-flavoured palette.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#7D56F4", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#A07000", Dark: "#F1FA8C"},
		Highlight: lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"},
		Muted:     lipgloss.AdaptiveColor{Light: "#888888", Dark: "#6272A4"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#444444", Dark: "#BFBFBF"},
		Border:    lipgloss.AdaptiveColor{Light: "#CCCCCC", Dark: "#44475A"},
		Danger:    lipgloss.AdaptiveColor{Light: "#C00000", Dark: "#FF5555"},

		Folder: lipgloss.AdaptiveColor{Light: "#A07000", Dark: "#F1FA8C"},
		Page:   lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"},
		Link:   lipgloss.AdaptiveColor{Light: "#B0306A", Dark: "#FF79C6"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"})
	t.Selected = r.NewStyle().
		Background(lipgloss.AdaptiveColor{Light: "#E6E0FA", Dark: "#44475A"}).
		Bold(true)
	t.DropMarker = r.NewStyle().Foreground(t.Secondary).Bold(true)
	return t
}

// TypeIcon returns the glyph and color for an item type.
func (t Theme) TypeIcon(typ model.ItemType) (string, lipgloss.AdaptiveColor) {
	switch typ {
	case model.TypeFolder:
		return "▣", t.Folder
	case model.TypeLink:
		return "↗", t.Link
	default:
		return "▤", t.Page
	}
}
