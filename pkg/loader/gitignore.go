package loader

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

const gitignoreComment = "# navtree local state (UI state, debug log, sqlite cache)"

// EnsureNavtreeInGitignore makes sure the project's .gitignore excludes the
// per-user files under .navtree/ (tree-state.json, debug.log, navtree.db)
// while leaving the items file itself trackable.
//
// The function is idempotent. It creates .gitignore when missing and keeps
// existing content and formatting intact.
func EnsureNavtreeInGitignore(projectDir string) error {
	if projectDir == "" {
		var err error
		projectDir, err = os.Getwd()
		if err != nil {
			return err
		}
	}

	gitignorePath := filepath.Join(projectDir, ".gitignore")

	present, err := isStateIgnored(gitignorePath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if present {
		return nil
	}
	return appendToGitignore(gitignorePath, ignoredStatePatterns)
}

// ignoredStatePatterns are appended as one block.
var ignoredStatePatterns = []string{
	DirName + "/tree-state.json",
	DirName + "/debug.log",
	DirName + "/*.db",
}

// isStateIgnored reports whether .gitignore already covers the state files,
// either through the whole directory or the tree-state entry.
func isStateIgnored(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if matchesStatePattern(line) {
			return true, nil
		}
	}
	return false, scanner.Err()
}

func matchesStatePattern(line string) bool {
	normalized := strings.TrimPrefix(line, "/")
	switch normalized {
	case DirName, DirName + "/", DirName + "/*", DirName + "/**", DirName + "/**/*",
		DirName + "/tree-state.json":
		return true
	}
	return false
}

// appendToGitignore appends a commented block of patterns, creating the file
// if needed and separating the block from existing content.
func appendToGitignore(path string, patterns []string) error {
	content, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	var b strings.Builder
	if len(content) > 0 {
		if content[len(content)-1] != '\n' {
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(gitignoreComment + "\n")
	for _, p := range patterns {
		b.WriteString(p + "\n")
	}

	_, err = file.WriteString(b.String())
	return err
}
