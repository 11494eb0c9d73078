package ui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/navtree/pkg/model"
	"github.com/vanderheijden86/navtree/pkg/navtree"
)

// SplitViewThreshold is the width from which tree and detail are shown
// side by side.
const SplitViewThreshold = 100

type focus int

const (
	focusTree focus = iota
	focusDetail
)

type overlay int

const (
	overlayNone overlay = iota
	overlayHelp
	overlayTypePicker
	overlayForm
	overlayConfirmDelete
)

// Options configures NewModel.
type Options struct {
	Title     string            // Header title, defaults to "navtree"
	StatePath string            // tree-state.json; empty disables persistence
	Expansion navtree.Expansion // Default expansion, nil means all
	// AutoSelect selects the first row when nothing is selected.
	AutoSelect bool
	Writer     *ItemWriter
}

// Model is the top-level Bubble Tea model.
type Model struct {
	items []model.NavigationItem
	tree  TreeModel

	detail         viewport.Model
	detailMarkdown string
	mdRenderer     *glamour.TermRenderer
	mdWidth        int

	search    textinput.Model
	searching bool
	lastQuery string

	typePicker    TypePickerModel
	createAnchor  *navtree.Node
	form          *ItemFormModel
	pendingDelete *navtree.Node
	overlay       overlay

	writer     *ItemWriter
	theme      Theme
	title      string
	autoSelect bool

	focused focus
	ready   bool
	width   int
	height  int

	statusMsg     string
	statusIsError bool
}

// NewModel creates the UI over items.
func NewModel(items []model.NavigationItem, opts Options) Model {
	theme := DefaultTheme(lipgloss.DefaultRenderer())

	tree := NewTreeModel(theme)
	tree.SetStatePath(opts.StatePath)
	tree.SetDefaultExpansion(opts.Expansion)

	ti := textinput.New()
	ti.Placeholder = "search titles"
	ti.Prompt = "/ "
	ti.CharLimit = 100

	title := opts.Title
	if title == "" {
		title = "navtree"
	}

	m := Model{
		tree:       tree,
		detail:     viewport.New(40, 10),
		search:     ti,
		writer:     opts.Writer,
		theme:      theme,
		title:      title,
		autoSelect: opts.AutoSelect,
	}
	m.setItems(items)
	return m
}

// Init emits the initial selection, if any.
func (m Model) Init() tea.Cmd {
	return nodeSelectedCmd(m.tree.SelectedNode())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case SnapshotReadyMsg:
		if msg.Snapshot == nil {
			return m, nil
		}
		prev := m.tree.SelectedID()
		m.setItems(msg.Snapshot.Items)
		status := fmt.Sprintf("Reloaded %d items", len(msg.Snapshot.Items))
		if r := msg.Snapshot.Report; r != nil && r.ProblemCount() > 0 {
			status += fmt.Sprintf(" (%d problems, run --robot-diagnose)", r.ProblemCount())
		}
		m.setStatus(status, false)
		return m, m.selectionChanged(prev)

	case SnapshotErrorMsg:
		m.setStatus(fmt.Sprintf("Reload failed: %v", msg.Err), true)
		return m, nil

	case WriteResultMsg:
		return m, m.handleWriteResult(msg)

	case NodeSelectedMsg:
		return m, nil

	case NodeMenuActionMsg:
		return m, m.handleMenuAction(msg)

	case NodeMovedMsg:
		if msg.Intent == nil {
			return m, nil
		}
		return m, m.writer.ApplyMove(m.items, m.tree.Tree(), msg.Intent)
	}

	if m.overlay == overlayForm && m.form != nil {
		return m, m.updateForm(msg)
	}
	if key, ok := msg.(tea.KeyMsg); ok {
		return m, m.handleKey(key)
	}
	if m.searching {
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) setItems(items []model.NavigationItem) {
	m.items = items
	m.tree.Build(items)
	if m.autoSelect {
		m.tree.AutoSelectFirst()
	}
	m.refreshDetail()
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.statusMsg = msg
	m.statusIsError = isErr
}

// selectionChanged refreshes the detail pane and emits NodeSelectedMsg when
// the selection moved away from prev.
func (m *Model) selectionChanged(prev string) tea.Cmd {
	if m.tree.SelectedID() == prev {
		return nil
	}
	m.refreshDetail()
	m.detail.GotoTop()
	return nodeSelectedCmd(m.tree.SelectedNode())
}

func (m *Model) handleKey(key tea.KeyMsg) tea.Cmd {
	if key.String() == "ctrl+c" {
		return tea.Quit
	}

	switch m.overlay {
	case overlayHelp:
		switch key.String() {
		case "?", "esc", "q":
			m.overlay = overlayNone
		}
		return nil
	case overlayTypePicker:
		return m.updateTypePicker(key)
	case overlayConfirmDelete:
		return m.updateConfirmDelete(key)
	}

	if m.searching {
		return m.updateSearch(key)
	}
	if m.tree.IsDragging() {
		return m.updateDrag(key)
	}
	if m.focused == focusDetail {
		return m.updateDetail(key)
	}
	return m.updateTree(key)
}

func (m *Model) updateTree(key tea.KeyMsg) tea.Cmd {
	prev := m.tree.SelectedID()

	switch key.String() {
	case "q":
		return tea.Quit
	case "?":
		m.overlay = overlayHelp
		return nil
	case "j", "down":
		m.tree.MoveDown()
	case "k", "up":
		m.tree.MoveUp()
	case "g", "home":
		m.tree.JumpToTop()
	case "G", "end":
		m.tree.JumpToBottom()
	case "ctrl+d", "pgdown":
		m.tree.PageDown()
	case "ctrl+u", "pgup":
		m.tree.PageUp()
	case "enter", " ":
		m.tree.ToggleExpand()
	case "l", "right":
		m.tree.ExpandOrMoveToChild()
	case "h", "left":
		m.tree.CollapseOrJumpToParent()
	case "E":
		m.tree.ExpandAll()
	case "C":
		m.tree.CollapseAll()
	case "tab":
		m.focused = focusDetail
		return nil
	case "m":
		if m.tree.StartDrag() {
			m.setStatus("Moving "+m.dragLabel()+": j/k choose a gap, enter drop, > drop into folder, esc cancel", false)
		}
		return nil
	case "a":
		m.createAnchor = m.tree.SelectedNode()
		m.typePicker = NewTypePickerModel(model.TypePage, m.theme)
		m.typePicker.SetSize(m.width, m.height)
		m.overlay = overlayTypePicker
		return nil
	case "e":
		if n := m.tree.SelectedNode(); n != nil {
			return menuActionCmd(n, ActionEdit, n.Type())
		}
		return nil
	case "d":
		if n := m.tree.SelectedNode(); n != nil {
			return menuActionCmd(n, ActionDelete, n.Type())
		}
		return nil
	case "y":
		m.copySelectedID()
		return nil
	case "/":
		m.searching = true
		m.search.SetValue("")
		return m.search.Focus()
	case "n":
		m.jumpToMatch(m.lastQuery, true)
	}

	return m.selectionChanged(prev)
}

func (m *Model) dragLabel() string {
	if n, ok := m.tree.Tree().Node(m.tree.DraggedID()); ok {
		return fmt.Sprintf("%q", n.Label)
	}
	return m.tree.DraggedID()
}

func (m *Model) updateDrag(key tea.KeyMsg) tea.Cmd {
	switch key.String() {
	case "j", "down":
		m.tree.MoveGap(1)
	case "k", "up":
		m.tree.MoveGap(-1)
	case "g", "home":
		m.tree.MoveGap(-m.tree.NodeCount())
	case "G", "end":
		m.tree.MoveGap(m.tree.NodeCount())
	case "enter":
		intent := m.tree.Drop()
		if intent == nil {
			m.setStatus("Nothing moved", false)
			return nil
		}
		m.setStatus("Saving move...", false)
		return nodeMovedCmd(intent)
	case ">", "i":
		intent := m.tree.DropInto()
		if intent == nil {
			m.setStatus("Can only drop into a folder other than the item itself", true)
			return nil
		}
		m.setStatus("Saving move...", false)
		return nodeMovedCmd(intent)
	case "esc", "q":
		m.tree.CancelDrag()
		m.setStatus("Move cancelled", false)
	case "?":
		m.overlay = overlayHelp
	}
	return nil
}

func (m *Model) updateDetail(key tea.KeyMsg) tea.Cmd {
	switch key.String() {
	case "tab", "esc":
		m.focused = focusTree
		return nil
	case "q":
		return tea.Quit
	case "?":
		m.overlay = overlayHelp
		return nil
	}
	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(key)
	return cmd
}

func (m *Model) updateSearch(key tea.KeyMsg) tea.Cmd {
	prev := m.tree.SelectedID()
	switch key.String() {
	case "esc":
		m.searching = false
		m.search.Blur()
		return nil
	case "enter":
		m.searching = false
		m.search.Blur()
		m.lastQuery = m.search.Value()
		if !m.jumpToMatch(m.lastQuery, false) && m.lastQuery != "" {
			m.setStatus(fmt.Sprintf("No match for %q", m.lastQuery), true)
		}
		return m.selectionChanged(prev)
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(key)
	m.jumpToMatch(m.search.Value(), false)
	return tea.Batch(cmd, m.selectionChanged(prev))
}

// jumpToMatch selects the first node whose title contains query, or with
// next set, the first match after the current selection (wrapping).
func (m *Model) jumpToMatch(query string, next bool) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	var matches []string
	m.tree.Tree().Walk(func(n *navtree.Node, _ int) bool {
		if strings.Contains(strings.ToLower(n.Label), q) {
			matches = append(matches, n.ID)
		}
		return true
	})
	if len(matches) == 0 {
		return false
	}
	target := matches[0]
	if next {
		cur := m.tree.SelectedID()
		for i, id := range matches {
			if id == cur {
				target = matches[(i+1)%len(matches)]
				break
			}
		}
	}
	return m.tree.SelectByID(target)
}

func (m *Model) copySelectedID() {
	id := m.tree.SelectedID()
	if id == "" {
		return
	}
	if err := clipboard.WriteAll(id); err != nil {
		m.setStatus(fmt.Sprintf("Clipboard unavailable: %v", err), true)
		return
	}
	m.setStatus("Copied "+id, false)
}

func (m *Model) updateTypePicker(key tea.KeyMsg) tea.Cmd {
	switch key.String() {
	case "j", "down":
		m.typePicker.MoveDown()
	case "k", "up":
		m.typePicker.MoveUp()
	case "enter":
		m.overlay = overlayNone
		return menuActionCmd(m.createAnchor, ActionCreate, m.typePicker.SelectedType())
	case "esc", "q":
		m.overlay = overlayNone
	}
	return nil
}

func (m *Model) updateConfirmDelete(key tea.KeyMsg) tea.Cmd {
	switch key.String() {
	case "y", "Y":
		n := m.pendingDelete
		m.pendingDelete = nil
		m.overlay = overlayNone
		if n == nil {
			return nil
		}
		return m.writer.Delete(m.items, m.tree.Tree(), n.ID)
	case "n", "N", "esc", "q":
		m.pendingDelete = nil
		m.overlay = overlayNone
	}
	return nil
}

func (m *Model) handleMenuAction(msg NodeMenuActionMsg) tea.Cmd {
	switch msg.Action {
	case ActionCreate:
		typ := msg.ItemType
		if !typ.IsValid() {
			typ = model.TypePage
		}
		m.form = NewCreateForm(m.tree.Tree(), msg.Node, typ)
	case ActionEdit:
		if msg.Node == nil {
			return nil
		}
		m.form = NewEditForm(msg.Node)
	case ActionDelete:
		if msg.Node == nil {
			return nil
		}
		m.pendingDelete = msg.Node
		m.overlay = overlayConfirmDelete
		return nil
	default:
		return nil
	}
	m.overlay = overlayForm
	return m.form.Init()
}

func (m *Model) updateForm(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c":
			return tea.Quit
		case "esc":
			m.closeForm()
			m.setStatus("Cancelled", false)
			return nil
		}
	}

	cmd := m.form.Update(msg)
	switch {
	case m.form.Done():
		item := m.form.Result()
		action := m.form.Action()
		m.closeForm()
		if action == ActionCreate {
			return m.writer.Create(m.items, item)
		}
		return m.writer.Update(m.items, item)
	case m.form.Aborted():
		m.closeForm()
		m.setStatus("Cancelled", false)
		return nil
	}
	return cmd
}

func (m *Model) closeForm() {
	m.form = nil
	m.overlay = overlayNone
}

func (m *Model) handleWriteResult(msg WriteResultMsg) tea.Cmd {
	if !msg.Success {
		m.setStatus(fmt.Sprintf("Could not %s: %v", msg.Operation, msg.Error), true)
		return nil
	}
	prev := m.tree.SelectedID()
	m.setItems(msg.Items)

	switch msg.Operation {
	case WriteMove:
		m.tree.SelectByID(msg.ItemID)
		m.setStatus(fmt.Sprintf("Moved %s (%d records updated)", msg.ItemID, msg.Changed), false)
	case WriteCreate:
		m.tree.SelectByID(msg.ItemID)
		m.setStatus("Created "+msg.ItemID, false)
	case WriteUpdate:
		m.setStatus("Saved "+msg.ItemID, false)
	case WriteDelete:
		m.setStatus(fmt.Sprintf("Deleted %d items", msg.Changed), false)
	}
	return m.selectionChanged(prev)
}

// resize lays out the panes for a width x height terminal.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.ready = true

	bodyHeight := max(height-2, 1) // header + status bar
	treeWidth, detailWidth := width, width
	if width >= SplitViewThreshold {
		treeWidth = width * 45 / 100
		detailWidth = width - treeWidth - 1
	}
	m.tree.SetSize(treeWidth, bodyHeight)
	m.detail.Width = max(detailWidth-2, 10)
	m.detail.Height = bodyHeight
	m.typePicker.SetSize(width, height)

	if wrap := max(detailWidth-4, 20); wrap != m.mdWidth {
		m.mdWidth = wrap
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		)
		if err == nil {
			m.mdRenderer = r
		}
	}
	m.refreshDetail()
}

// refreshDetail rebuilds the detail pane for the selected node.
func (m *Model) refreshDetail() {
	n := m.tree.SelectedNode()
	if n == nil {
		m.detailMarkdown = "_Nothing selected._"
	} else {
		m.detailMarkdown = m.describe(n)
	}
	content := m.detailMarkdown
	if m.mdRenderer != nil {
		if out, err := m.mdRenderer.Render(content); err == nil {
			content = out
		}
	}
	m.detail.SetContent(content)
}

// describe renders node as markdown for the detail pane.
func (m *Model) describe(n *navtree.Node) string {
	tree := m.tree.Tree()
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", n.Label)
	fmt.Fprintf(&sb, "- **ID:** `%s`\n", n.ID)
	fmt.Fprintf(&sb, "- **Type:** %s\n", formatTypeName(n.Type()))

	parentID := tree.ParentID(n.ID)
	if parentID == "" {
		sb.WriteString("- **Parent:** _root_\n")
	} else if p, ok := tree.Node(parentID); ok {
		fmt.Fprintf(&sb, "- **Parent:** %s (`%s`)\n", p.Label, p.ID)
	}
	if stored := n.Data.Parent(); stored != parentID {
		fmt.Fprintf(&sb, "- **Stored parent:** `%s` (unresolvable, shown at root)\n", stored)
	}
	fmt.Fprintf(&sb, "- **Position:** %d of %d\n", tree.Position(n.ID)+1, len(tree.Siblings(parentID)))

	published := "no (draft)"
	if n.Data.Published {
		published = "yes"
	}
	fmt.Fprintf(&sb, "- **Published:** %s\n", published)

	switch k := n.Kind.(type) {
	case navtree.Link:
		fmt.Fprintf(&sb, "- **URL:** <%s>\n", k.URL)
	case *navtree.Folder:
		fmt.Fprintf(&sb, "- **Children:** %d\n", len(k.Children))
	}

	if desc := strings.TrimSpace(n.Data.Description); desc != "" {
		sb.WriteString("\n")
		sb.WriteString(desc)
		sb.WriteString("\n")
	}
	return sb.String()
}

// View renders the UI.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	switch m.overlay {
	case overlayHelp:
		return RenderContextHelp(m.context(), m.theme, m.width, m.height)
	case overlayTypePicker:
		return m.typePicker.View()
	case overlayForm:
		if m.form != nil {
			return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.form.View())
		}
	case overlayConfirmDelete:
		return m.renderConfirmDelete()
	}

	r := m.theme.Renderer
	bodyHeight := max(m.height-2, 1)

	var body string
	if m.width >= SplitViewThreshold {
		treeWidth := m.width * 45 / 100
		treePane := r.NewStyle().Width(treeWidth).Height(bodyHeight).MaxHeight(bodyHeight).Render(m.tree.View())
		borderColor := m.theme.Border
		if m.focused == focusDetail {
			borderColor = m.theme.Primary
		}
		detailPane := r.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(borderColor).
			PaddingLeft(1).
			Height(bodyHeight).
			MaxHeight(bodyHeight).
			Render(m.detail.View())
		body = lipgloss.JoinHorizontal(lipgloss.Top, treePane, detailPane)
	} else if m.focused == focusDetail {
		body = m.detail.View()
	} else {
		body = r.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(m.tree.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderStatusBar())
}

func (m *Model) renderHeader() string {
	r := m.theme.Renderer
	title := r.NewStyle().Foreground(m.theme.Primary).Bold(true).Render(m.title)
	stats := r.NewStyle().Foreground(m.theme.Muted).Render(
		fmt.Sprintf(" %d items · %d roots", m.tree.Tree().Len(), m.tree.RootCount()))
	mode := ""
	if m.tree.IsDragging() {
		mode = r.NewStyle().Foreground(m.theme.Secondary).Bold(true).Render("  MOVE")
	}
	return title + stats + mode
}

func (m *Model) renderStatusBar() string {
	r := m.theme.Renderer
	if m.searching {
		return m.search.View()
	}
	if m.statusMsg != "" {
		color := m.theme.Subtext
		if m.statusIsError {
			color = m.theme.Danger
		}
		return r.NewStyle().Foreground(color).Render(m.statusMsg)
	}
	return r.NewStyle().Foreground(m.theme.Muted).Render("? help · m move · a add · e edit · d delete · q quit")
}

func (m *Model) renderConfirmDelete() string {
	r := m.theme.Renderer
	label, count := "", 0
	if n := m.pendingDelete; n != nil {
		label = n.Label
		count = len(m.tree.Tree().Subtree(n.ID))
	}
	text := fmt.Sprintf("Delete %q", label)
	if count > 1 {
		text += fmt.Sprintf(" and %d nested items", count-1)
	}
	text += "?\n\n" + r.NewStyle().Foreground(m.theme.Muted).Italic(true).Render("y: delete | n: keep")
	box := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Danger).
		Padding(1, 2).
		Render(text)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// context reports what the user is doing, for the help overlay.
func (m *Model) context() Context {
	switch {
	case m.form != nil:
		return ContextForm
	case m.pendingDelete != nil:
		return ContextConfirm
	case m.searching:
		return ContextSearch
	case m.tree.IsDragging():
		return ContextDrag
	case m.focused == focusDetail:
		return ContextDetail
	}
	return ContextTree
}

// ActiveContext returns the current interaction context.
func (m Model) ActiveContext() Context {
	switch m.overlay {
	case overlayTypePicker:
		return ContextTypePicker
	case overlayForm:
		return ContextForm
	case overlayConfirmDelete:
		return ContextConfirm
	}
	return m.context()
}

// SelectedID returns the selected item id, or "".
func (m Model) SelectedID() string {
	return m.tree.SelectedID()
}

// Items returns the current items.
func (m Model) Items() []model.NavigationItem {
	return m.items
}

// Status returns the status line text and whether it reports an error.
func (m Model) Status() (string, bool) {
	return m.statusMsg, m.statusIsError
}

// IsDragging reports whether a move gesture is in progress.
func (m Model) IsDragging() bool {
	return m.tree.IsDragging()
}

// DetailMarkdown returns the unrendered detail pane content.
func (m Model) DetailMarkdown() string {
	return m.detailMarkdown
}

// HelpVisible reports whether the help overlay is open.
func (m Model) HelpVisible() bool {
	return m.overlay == overlayHelp
}
