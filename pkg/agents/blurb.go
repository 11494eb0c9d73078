// Package agents maintains the navtree section of agent instruction files
// (AGENTS.md, CLAUDE.md) so coding agents use the --robot-* commands instead
// of the interactive UI.
package agents

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// BlurbVersion is bumped whenever AgentBlurb changes in a way existing
// files should pick up.
const BlurbVersion = 1

const (
	blurbStartPrefix = "<!-- navtree-agent-instructions-v"
	// BlurbEndMarker closes the injected section.
	BlurbEndMarker = "<!-- end-navtree-agent-instructions -->"
)

// BlurbStartMarker opens the injected section for the current version.
var BlurbStartMarker = fmt.Sprintf("%s%d -->", blurbStartPrefix, BlurbVersion)

// AgentBlurb is the section appended to agent instruction files.
var AgentBlurb = BlurbStartMarker + `

---

## Navigation tree (navtree)

The site navigation lives in ` + "`.navtree/items.json`" + ` (or .jsonl/.yaml): a flat
list of items with ` + "`parentId`" + ` and ` + "`order`" + `. Do not launch the TUI from an
automated session; use the robot commands, which print JSON on stdout.

` + "```" + `bash
navtree --robot-tree                         # nested tree after root promotion
navtree --robot-flat --collapse f1,f2        # visible rows with depth and index
navtree --robot-diagnose                     # dangling parents, cycles, order gaps
navtree --robot-resolve --drag ID --drop N   # MoveIntent for a drop gap, plus the patch plan
navtree --robot-resolve --drag ID --drop N --apply   # same, and persist it
` + "```" + `

- Pages and links are leaves; only folders take children.
- Items whose parent is missing, not a folder, or part of a cycle are shown at
  the root level. ` + "`--robot-diagnose`" + ` lists them.
- A null intent means the drop is a no-op or not allowed (for example moving a
  folder into its own subtree).

` + BlurbEndMarker

// SupportedAgentFiles lists the instruction files checked, in order.
var SupportedAgentFiles = []string{
	"AGENTS.md",
	"CLAUDE.md",
	"agents.md",
	"claude.md",
}

var blurbVersionRegex = regexp.MustCompile(`<!-- navtree-agent-instructions-v(\d+) -->`)

// ContainsBlurb reports whether content has a navtree section of any version.
func ContainsBlurb(content string) bool {
	return strings.Contains(content, blurbStartPrefix)
}

// GetBlurbVersion returns the version of the section in content, or 0.
func GetBlurbVersion(content string) int {
	m := blurbVersionRegex.FindStringSubmatch(content)
	if len(m) < 2 {
		return 0
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return v
}

// NeedsUpdate reports whether content has an older section.
func NeedsUpdate(content string) bool {
	return ContainsBlurb(content) && GetBlurbVersion(content) < BlurbVersion
}

// AppendBlurb appends the section, separated by a blank line.
func AppendBlurb(content string) string {
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if content != "" {
		content += "\n"
	}
	return content + AgentBlurb + "\n"
}

// RemoveBlurb removes the section and the blank lines around it. Content
// with a start marker but no end marker is returned unchanged.
func RemoveBlurb(content string) string {
	start := strings.Index(content, blurbStartPrefix)
	if start == -1 {
		return content
	}
	end := strings.Index(content[start:], BlurbEndMarker)
	if end == -1 {
		return content
	}
	end += start + len(BlurbEndMarker)
	for end < len(content) && (content[end] == '\n' || content[end] == '\r') {
		end++
	}
	for start > 0 && (content[start-1] == '\n' || content[start-1] == '\r') {
		start--
	}
	if start > 0 && end < len(content) {
		return content[:start] + "\n\n" + content[end:]
	}
	return content[:start] + content[end:]
}

// UpdateBlurb replaces any existing section with the current one.
func UpdateBlurb(content string) string {
	return AppendBlurb(RemoveBlurb(content))
}

// FindAgentFile returns the first supported instruction file in dir.
func FindAgentFile(dir string) (string, bool) {
	for _, name := range SupportedAgentFiles {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}

// EnsureBlurb makes sure the instruction file in dir carries the current
// section, creating AGENTS.md when none exists. It returns the file path
// and whether the file was written.
func EnsureBlurb(dir string) (string, bool, error) {
	path, ok := FindAgentFile(dir)
	if !ok {
		path = filepath.Join(dir, SupportedAgentFiles[0])
	}

	var content string
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		content = string(data)
	case !os.IsNotExist(err):
		return path, false, fmt.Errorf("reading %s: %w", path, err)
	}

	var next string
	switch {
	case NeedsUpdate(content):
		next = UpdateBlurb(content)
	case ContainsBlurb(content):
		return path, false, nil
	default:
		next = AppendBlurb(content)
	}

	if err := os.WriteFile(path, []byte(next), 0o644); err != nil {
		return path, false, fmt.Errorf("writing %s: %w", path, err)
	}
	return path, true, nil
}
