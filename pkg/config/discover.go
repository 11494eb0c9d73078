package config

import (
	"os"
	"path/filepath"
	"strings"
)

const defaultScanDepth = 3

// DiscoverProjects returns the registered projects followed by every project
// found under Discovery.ScanPaths. A scanned directory that is already
// registered keeps its registered entry.
func DiscoverProjects(cfg Config) []Project {
	projects := append([]Project(nil), cfg.Projects...)
	known := make(map[string]bool, len(projects))
	for _, p := range projects {
		known[p.ResolvedPath()] = true
	}

	depth := cfg.Discovery.MaxDepth
	if depth <= 0 {
		depth = defaultScanDepth
	}
	for _, scanPath := range cfg.Discovery.ScanPaths {
		for _, dir := range scanForProjects(scanPath, depth) {
			if known[dir] {
				continue
			}
			known[dir] = true
			projects = append(projects, Project{Name: filepath.Base(dir), Path: dir})
		}
	}
	return projects
}

// scanForProjects lists directories holding a .navtree/ state directory,
// at most maxDepth levels below root. Hidden directories are skipped and a
// project's own subdirectories are not searched.
func scanForProjects(root string, maxDepth int) []string {
	var found []string
	var visit func(dir string, depth int)
	visit = func(dir string, depth int) {
		if hasStateDir(dir) {
			found = append(found, dir)
			return
		}
		if depth == maxDepth {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return
		}
		for _, e := range entries {
			if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
				visit(filepath.Join(dir, e.Name()), depth+1)
			}
		}
	}
	visit(filepath.Clean(expandHome(root)), 0)
	return found
}

func hasStateDir(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, DirName))
	return err == nil && info.IsDir()
}

// DetectCurrentProject walks up from the working directory to the nearest
// directory containing .navtree/.
func DetectCurrentProject() (string, bool) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false
	}
	return findProjectRoot(cwd)
}

// findProjectRoot stops at the filesystem root or the home directory,
// whichever comes first.
func findProjectRoot(dir string) (string, bool) {
	home, _ := os.UserHomeDir()
	for {
		if hasStateDir(dir) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir || dir == home {
			return "", false
		}
		dir = parent
	}
}
