package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/vanderheijden86/navtree/pkg/model"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func sampleItems() []model.NavigationItem {
	f := model.NavigationItem{ID: "f1", Title: "Guides", Type: model.TypeFolder, Order: 0, Published: true}
	c := model.NavigationItem{ID: "c1", Title: "Install", Type: model.TypePage, Order: 0, Description: "How to install"}
	c.SetParent("f1")
	l := model.NavigationItem{ID: "l1", Title: "API", Type: model.TypeLink, Order: 1, URL: "https://example.com/api"}
	return []model.NavigationItem{f, c, l}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"items.json", FormatJSON},
		{"a/b/ITEMS.JSON", FormatJSON},
		{"items.jsonl", FormatJSONL},
		{"items.ndjson", FormatJSONL},
		{"items.yaml", FormatYAML},
		{"items.yml", FormatYAML},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.path)
		if err != nil || got != tt.want {
			t.Errorf("DetectFormat(%q) = %q, %v; want %q", tt.path, got, err, tt.want)
		}
	}
	if _, err := DetectFormat("items.toml"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestLoadItems_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")
	writeFile(t, path, `[
  {"id":"p1","title":"Intro","type":"PAGE","parentId":null,"order":0,"published":true},
  {"id":"c1","title":"Child","type":"PAGE","parentId":"f1","order":2,"published":false}
]`)

	items, err := LoadItems(path)
	if err != nil {
		t.Fatalf("LoadItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items", len(items))
	}
	if items[0].ParentID != nil || items[1].Parent() != "f1" || items[1].Order != 2 {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestLoadItems_JSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.jsonl")
	writeFile(t, path, `{"id":"a","title":"A","type":"PAGE","parentId":null,"order":0,"published":true}

{"id":"b","title":"B","type":"FOLDER","parentId":null,"order":1,"published":true}
`)
	items, err := LoadItems(path)
	if err != nil {
		t.Fatalf("LoadItems: %v", err)
	}
	if len(items) != 2 || items[1].Type != model.TypeFolder {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestLoadItems_JSONLReportsLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.jsonl")
	writeFile(t, path, "{\"id\":\"a\",\"title\":\"A\",\"type\":\"PAGE\"}\n{not json}\n")
	_, err := LoadItems(path)
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected a line 2 error, got %v", err)
	}
}

func TestLoadItems_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.yaml")
	writeFile(t, path, `- id: f1
  title: Guides
  type: FOLDER
  parentId: null
  order: 0
  published: true
- id: c1
  title: Install
  type: PAGE
  parentId: f1
  order: 0
  published: false
`)
	items, err := LoadItems(path)
	if err != nil {
		t.Fatalf("LoadItems: %v", err)
	}
	if len(items) != 2 || items[0].ParentID != nil || items[1].Parent() != "f1" {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestLoadItems_EmptyFile(t *testing.T) {
	for _, name := range []string{"items.json", "items.jsonl", "items.yaml"} {
		path := filepath.Join(t.TempDir(), name)
		writeFile(t, path, "\n")
		items, err := LoadItems(path)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if items == nil || len(items) != 0 {
			t.Errorf("%s: want empty non-nil slice, got %#v", name, items)
		}
	}
}

func TestLoadItems_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadItems(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
	bad := filepath.Join(dir, "bad.json")
	writeFile(t, bad, `{"id":`)
	if _, err := LoadItems(bad); err == nil || !strings.Contains(err.Error(), "invalid JSON") {
		t.Errorf("expected invalid JSON error, got %v", err)
	}
}

func TestSaveItems_RoundTripAllFormats(t *testing.T) {
	for _, name := range []string{"items.json", "items.jsonl", "items.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			want := sampleItems()
			if err := SaveItems(path, want); err != nil {
				t.Fatalf("SaveItems: %v", err)
			}
			got, err := LoadItems(path)
			if err != nil {
				t.Fatalf("LoadItems: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
			}

			entries, _ := os.ReadDir(filepath.Dir(path))
			if len(entries) != 1 {
				t.Errorf("temp files left behind: %v", entries)
			}
		})
	}
}

func TestFindItemsFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := FindItemsFile(dir); err == nil {
		t.Error("expected error when no items file exists")
	}

	writeFile(t, filepath.Join(dir, "items.yaml"), "[]")
	got, err := FindItemsFile(dir)
	if err != nil || got != filepath.Join(dir, "items.yaml") {
		t.Errorf("FindItemsFile = %q, %v", got, err)
	}

	// The .navtree directory takes precedence.
	writeFile(t, filepath.Join(dir, DirName, "items.jsonl"), "")
	got, err = FindItemsFile(dir)
	if err != nil || got != filepath.Join(dir, DirName, "items.jsonl") {
		t.Errorf("FindItemsFile = %q, %v", got, err)
	}
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.json")
	b := filepath.Join(dir, "b.yaml")
	writeFile(t, a, `[{"id":"a1","title":"A","type":"PAGE"}]`)
	writeFile(t, b, "- id: b1\n  title: B\n  type: PAGE\n- id: b2\n  title: B2\n  type: LINK\n  url: https://x\n")

	items, err := LoadAll(context.Background(), []string{a, b})
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	var ids []string
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	if !reflect.DeepEqual(ids, []string{"a1", "b1", "b2"}) {
		t.Errorf("ids = %v, want argument order", ids)
	}

	if _, err := LoadAll(context.Background(), []string{a, filepath.Join(dir, "nope.json")}); err == nil {
		t.Error("expected error when one file is missing")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := LoadAll(ctx, []string{a}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
