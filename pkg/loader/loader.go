// Package loader reads and writes navigation item files and discovers the
// default items file of a project.
package loader

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/navtree/pkg/model"
)

// DirName is the per-project directory holding items, UI state and logs.
const DirName = ".navtree"

// DefaultFileNames are tried in order by FindItemsFile.
var DefaultFileNames = []string{"items.json", "items.jsonl", "items.yaml", "items.yml"}

// ErrUnsupportedFormat is returned for file extensions the loader does not know.
var ErrUnsupportedFormat = errors.New("unsupported items file format")

// Format identifies an items file encoding.
type Format string

const (
	FormatJSON  Format = "json"  // A single JSON array
	FormatJSONL Format = "jsonl" // One JSON object per line
	FormatYAML  Format = "yaml"  // A YAML sequence
)

// DetectFormat picks a format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
}

// FindItemsFile looks for a default items file in dir/.navtree and then in
// dir itself.
func FindItemsFile(dir string) (string, error) {
	for _, base := range []string{filepath.Join(dir, DirName), dir} {
		for _, name := range DefaultFileNames {
			candidate := filepath.Join(base, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("no items file found in %s (looked for %s under %s/)",
		dir, strings.Join(DefaultFileNames, ", "), DirName)
}

// LoadItems reads one items file.
func LoadItems(path string) ([]model.NavigationItem, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open items file: %w", err)
	}
	defer f.Close()

	items, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}

// Decode parses items from r. An empty input yields an empty, non-nil slice.
func Decode(r io.Reader, format Format) ([]model.NavigationItem, error) {
	switch format {
	case FormatJSONL:
		return decodeJSONL(r)
	case FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	items := []model.NavigationItem{}
	if len(bytes.TrimSpace(data)) == 0 {
		return items, nil
	}
	if format == FormatYAML {
		if err := yaml.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
	} else if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if items == nil {
		items = []model.NavigationItem{}
	}
	return items, nil
}

func decodeJSONL(r io.Reader) ([]model.NavigationItem, error) {
	items := []model.NavigationItem{}
	scanner := bufio.NewScanner(r)
	// Item descriptions can be long; allow lines up to 10MB.
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var item model.NavigationItem
		if err := json.Unmarshal(line, &item); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading items: %w", err)
	}
	return items, nil
}

// Encode writes items in the given format.
func Encode(w io.Writer, items []model.NavigationItem, format Format) error {
	if items == nil {
		items = []model.NavigationItem{}
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	case FormatJSONL:
		enc := json.NewEncoder(w)
		for _, item := range items {
			if err := enc.Encode(item); err != nil {
				return err
			}
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(items); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// SaveItems writes items to path atomically, keeping the format implied by
// the extension.
func SaveItems(path string, items []model.NavigationItem) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, items, format); err != nil {
		return fmt.Errorf("encoding items: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".items-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing items: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// LoadAll reads several item files concurrently and concatenates the
// results in argument order. The first error cancels the remaining reads.
func LoadAll(ctx context.Context, paths []string) ([]model.NavigationItem, error) {
	results := make([][]model.NavigationItem, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			items, err := LoadItems(p)
			if err != nil {
				return err
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	all := make([]model.NavigationItem, 0, total)
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}
