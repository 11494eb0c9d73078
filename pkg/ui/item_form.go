package ui

import (
	"errors"
	"net/url"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/google/uuid"

	"github.com/vanderheijden86/navtree/pkg/model"
	"github.com/vanderheijden86/navtree/pkg/navtree"
)

// ItemFormModel wraps the create/edit form for one item.
type ItemFormModel struct {
	form   *huh.Form
	action MenuAction
	base   model.NavigationItem

	title       string
	url         string
	description string
	published   bool
}

// NewCreateForm prepares a form for a new item of type typ. The item goes
// into anchor when anchor is a folder, next to it otherwise, and at the root
// level when anchor is nil. It is appended at the end of its group.
func NewCreateForm(tree *navtree.Tree, anchor *navtree.Node, typ model.ItemType) *ItemFormModel {
	parentID := ""
	if anchor != nil {
		if anchor.IsFolder() {
			parentID = anchor.ID
		} else {
			parentID = tree.ParentID(anchor.ID)
		}
	}
	base := model.NavigationItem{
		ID:    uuid.NewString(),
		Type:  typ,
		Order: len(tree.Siblings(parentID)),
	}
	base.SetParent(parentID)

	f := &ItemFormModel{action: ActionCreate, base: base, published: true}
	f.form = f.buildForm("New " + formatTypeName(typ))
	return f
}

// NewEditForm prepares a form prefilled from node.
func NewEditForm(node *navtree.Node) *ItemFormModel {
	base := node.Data.Clone()
	f := &ItemFormModel{
		action:      ActionEdit,
		base:        base,
		title:       base.Title,
		url:         base.URL,
		description: base.Description,
		published:   base.Published,
	}
	f.form = f.buildForm("Edit " + formatTypeName(base.Type))
	return f
}

func (f *ItemFormModel) buildForm(heading string) *huh.Form {
	fields := []huh.Field{
		huh.NewNote().Title(heading),
		huh.NewInput().
			Key("title").
			Title("Title").
			Value(&f.title).
			Validate(validateTitle),
	}
	if f.base.Type == model.TypeLink {
		fields = append(fields, huh.NewInput().
			Key("url").
			Title("URL").
			Value(&f.url).
			Validate(validateURL))
	}
	fields = append(fields,
		huh.NewText().
			Key("description").
			Title("Description").
			Value(&f.description),
		huh.NewConfirm().
			Key("published").
			Title("Published").
			Affirmative("Yes").
			Negative("No").
			Value(&f.published),
	)
	return huh.NewForm(huh.NewGroup(fields...)).WithShowHelp(true)
}

func validateTitle(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("title is required")
	}
	return nil
}

func validateURL(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("url is required for links")
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return errors.New("url must be absolute, e.g. https://example.com")
	}
	return nil
}

// Init starts the form.
func (f *ItemFormModel) Init() tea.Cmd {
	return f.form.Init()
}

// Update forwards msg to the form.
func (f *ItemFormModel) Update(msg tea.Msg) tea.Cmd {
	m, cmd := f.form.Update(msg)
	if form, ok := m.(*huh.Form); ok {
		f.form = form
	}
	return cmd
}

// View renders the form.
func (f *ItemFormModel) View() string {
	return f.form.View()
}

// Done reports whether the user submitted the form.
func (f *ItemFormModel) Done() bool {
	return f.form.State == huh.StateCompleted
}

// Aborted reports whether the user cancelled the form.
func (f *ItemFormModel) Aborted() bool {
	return f.form.State == huh.StateAborted
}

// Action returns ActionCreate or ActionEdit.
func (f *ItemFormModel) Action() MenuAction {
	return f.action
}

// Result returns the item with the form values applied.
func (f *ItemFormModel) Result() model.NavigationItem {
	it := f.base.Clone()
	it.Title = strings.TrimSpace(f.title)
	it.Description = strings.TrimSpace(f.description)
	it.Published = f.published
	if it.Type == model.TypeLink {
		it.URL = strings.TrimSpace(f.url)
	}
	return it
}
