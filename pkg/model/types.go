package model

import (
	"fmt"
	"strings"
)

// NavigationItem is one record of the flat navigation collection: a page,
// folder or link in the console's documentation tree.
type NavigationItem struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Type        ItemType `json:"type" yaml:"type"`
	ParentID    *string  `json:"parentId" yaml:"parentId"` // nil = root
	Order       int      `json:"order" yaml:"order"`
	Published   bool     `json:"published" yaml:"published"`
	URL         string   `json:"url,omitempty" yaml:"url,omitempty"`                 // Links only
	Description string   `json:"description,omitempty" yaml:"description,omitempty"` // Free text, shown in the detail pane
}

// Parent returns the parent id, or "" for a root item.
func (i NavigationItem) Parent() string {
	if i.ParentID == nil {
		return ""
	}
	return *i.ParentID
}

// SetParent sets the parent id; "" clears it.
func (i *NavigationItem) SetParent(id string) {
	if id == "" {
		i.ParentID = nil
		return
	}
	v := id
	i.ParentID = &v
}

// Clone creates a deep copy of the item
func (i NavigationItem) Clone() NavigationItem {
	clone := i
	if i.ParentID != nil {
		v := *i.ParentID
		clone.ParentID = &v
	}
	return clone
}

// CloneItems deep-copies a slice of items. A nil slice stays nil.
func CloneItems(items []NavigationItem) []NavigationItem {
	if items == nil {
		return nil
	}
	out := make([]NavigationItem, len(items))
	for idx, item := range items {
		out[idx] = item.Clone()
	}
	return out
}

// Validate checks if the item data is logically valid on its own.
// Cross-record problems (dangling parents, cycles) are reported by the
// analysis package instead.
func (i *NavigationItem) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return fmt.Errorf("item ID cannot be empty")
	}
	if strings.TrimSpace(i.Title) == "" {
		return fmt.Errorf("item title cannot be empty")
	}
	if !i.Type.IsValid() {
		return fmt.Errorf("invalid item type: %q", i.Type)
	}
	if i.Order < 0 {
		return fmt.Errorf("order (%d) cannot be negative", i.Order)
	}
	if i.ParentID != nil && *i.ParentID == i.ID {
		return fmt.Errorf("item %s cannot be its own parent", i.ID)
	}
	if i.Type == TypeLink && i.URL == "" {
		return fmt.Errorf("link %s has no url", i.ID)
	}
	return nil
}

// ItemType categorizes a navigation item
type ItemType string

const (
	TypePage   ItemType = "PAGE"
	TypeFolder ItemType = "FOLDER"
	TypeLink   ItemType = "LINK"
)

// AllItemTypes lists the item types in menu order.
func AllItemTypes() []ItemType {
	return []ItemType{TypePage, TypeFolder, TypeLink}
}

// IsValid returns true if the type is one of PAGE, FOLDER or LINK
func (t ItemType) IsValid() bool {
	switch t {
	case TypePage, TypeFolder, TypeLink:
		return true
	}
	return false
}

// CanHaveChildren reports whether items of this type may be parents.
func (t ItemType) CanHaveChildren() bool {
	return t == TypeFolder
}

// ParseItemType accepts any casing ("page", "Folder", "LINK").
func ParseItemType(s string) (ItemType, error) {
	t := ItemType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("unknown item type %q (want page, folder or link)", s)
	}
	return t, nil
}
