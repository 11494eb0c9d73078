package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Context identifies what the user is interacting with, for help content.
type Context string

const (
	ContextTree       Context = "tree"
	ContextDrag       Context = "drag"
	ContextDetail     Context = "detail"
	ContextSearch     Context = "search"
	ContextTypePicker Context = "type-picker"
	ContextForm       Context = "form"
	ContextConfirm    Context = "confirm"
)

// ContextHelpContent holds the compact help for each context. Each entry
// fits on one screen.
var ContextHelpContent = map[Context]string{
	ContextTree:       contextHelpTree,
	ContextDrag:       contextHelpDrag,
	ContextDetail:     contextHelpDetail,
	ContextSearch:     contextHelpSearch,
	ContextTypePicker: contextHelpTypePicker,
	ContextForm:       contextHelpForm,
	ContextConfirm:    contextHelpConfirm,
}

// GetContextHelp returns the help for ctx, or the generic help.
func GetContextHelp(ctx Context) string {
	if content, ok := ContextHelpContent[ctx]; ok {
		return content
	}
	return contextHelpGeneric
}

// RenderContextHelp renders the help modal centered in width x height.
func RenderContextHelp(ctx Context, theme Theme, width, height int) string {
	content := GetContextHelp(ctx)
	r := theme.Renderer

	// Without a known size the default width stands.
	modalWidth := 60
	if width > 0 {
		modalWidth = min(modalWidth, width-4)
		modalWidth = max(modalWidth, 20)
	}

	titleStyle := r.NewStyle().Bold(true).Foreground(theme.Primary)
	contentStyle := r.NewStyle().Foreground(theme.Subtext)
	footerStyle := r.NewStyle().Foreground(theme.Muted).Italic(true)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Quick Reference"))
	b.WriteString("\n")
	b.WriteString(r.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", modalWidth-4)))
	b.WriteString("\n\n")
	b.WriteString(contentStyle.Render(content))
	b.WriteString("\n\n")
	b.WriteString(footerStyle.Render("Press ? or Esc to close"))

	modal := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Secondary).
		Padding(1, 2).
		Width(modalWidth).
		Render(b.String())

	if width <= 0 || height <= 0 {
		return modal
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modal)
}

const contextHelpTree = `## Tree
  j/k ↑/↓     Move selection
  h/l ←/→     Collapse / expand (or step to parent/child)
  enter/space Toggle folder
  g/G         Top / bottom
  ^d/^u       Half page down / up
  E/C         Expand all / collapse all
  m           Pick up item to move
  a           Add item (into folder or next to item)
  e           Edit item
  d           Delete item and its children
  y           Copy id to clipboard
  /           Search titles, n for next match
  tab         Focus detail pane
  q           Quit`

const contextHelpDrag = `## Moving an item
  j/k ↑/↓   Move the drop marker
  enter     Drop at the marker
  >  i      Drop into the folder above the marker
  esc       Cancel

The dragged item and its children are hidden while moving.
Dropping right below an open folder makes the item its
first child; an item can never move into itself.`

const contextHelpDetail = `## Detail
  j/k ↑/↓   Scroll
  ^d/^u     Half page down / up
  tab/esc   Back to tree`

const contextHelpSearch = `## Search
  type      Filter by title (case-insensitive)
  enter     Jump to first match
  esc       Cancel
  n         Next match (after search)`

const contextHelpTypePicker = `## New item
  j/k ↑/↓   Choose type
  enter     Open form
  esc       Cancel`

const contextHelpForm = `## Item form
  tab       Next field
  shift+tab Previous field
  enter     Submit
  esc       Cancel`

const contextHelpConfirm = `## Delete
  y         Delete the item and all its children
  n/esc     Keep it`

const contextHelpGeneric = `## navtree
  ?         Toggle this help
  q         Quit`
