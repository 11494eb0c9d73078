// Package config loads layered navtree settings and locates projects.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/vanderheijden86/navtree/pkg/navtree"
)

// DirName is the per-project state directory.
const DirName = ".navtree"

// EnvPrefix prefixes environment overrides, e.g. NAVTREE_EXPAND=none.
// A double underscore separates nested keys: NAVTREE_DISCOVERY__MAX_DEPTH.
const EnvPrefix = "NAVTREE_"

// Config is the resolved configuration. Relative paths are resolved against
// ProjectRoot by Load.
type Config struct {
	ProjectRoot string          `koanf:"-"`
	ConfigFile  string          `koanf:"-"` // File that was read, if any
	Items       string          `koanf:"items"`
	DB          string          `koanf:"db"`
	Expand      string          `koanf:"expand"`
	Debounce    time.Duration   `koanf:"debounce"`
	StateFile   string          `koanf:"state_file"`
	LogFile     string          `koanf:"log_file"`
	Projects    []Project       `koanf:"projects"`
	Discovery   DiscoveryConfig `koanf:"discovery"`
}

// Project is a named navtree project directory.
type Project struct {
	Name string `koanf:"name" json:"name"`
	Path string `koanf:"path" json:"path"`
}

// ResolvedPath expands a leading ~ and cleans the path.
func (p Project) ResolvedPath() string {
	return filepath.Clean(expandHome(p.Path))
}

// DiscoveryConfig controls project scanning.
type DiscoveryConfig struct {
	ScanPaths []string `koanf:"scan_paths"`
	MaxDepth  int      `koanf:"max_depth"`
}

// LoadOptions selects where Load looks.
type LoadOptions struct {
	// ProjectRoot overrides discovery; empty means walk up from the cwd.
	ProjectRoot string
	// ConfigFile overrides <root>/.navtree/config.yaml.
	ConfigFile string
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"items":                "",
		"db":                   "",
		"expand":               "all",
		"debounce":             "200ms",
		"state_file":           filepath.Join(DirName, "tree-state.json"),
		"log_file":             filepath.Join(DirName, "debug.log"),
		"discovery.max_depth":  3,
		"discovery.scan_paths": []string{},
	}
}

// Load merges defaults, the YAML config file and NAVTREE_* environment
// variables, in increasing precedence.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	root := opts.ProjectRoot
	if root == "" {
		if found, ok := DetectCurrentProject(); ok {
			root = found
		} else if cwd, err := os.Getwd(); err == nil {
			root = cwd
		} else {
			root = "."
		}
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	cfgFile := opts.ConfigFile
	if cfgFile == "" {
		for _, name := range []string{"config.yaml", "config.yml"} {
			candidate := filepath.Join(root, DirName, name)
			if _, err := os.Stat(candidate); err == nil {
				cfgFile = candidate
				break
			}
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// 3. Environment: NAVTREE_STATE_FILE -> state_file
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectRoot = root
	cfg.ConfigFile = cfgFile

	cfg.Items = resolvePathRelativeTo(cfg.Items, root)
	if cfg.DB != ":memory:" {
		cfg.DB = resolvePathRelativeTo(cfg.DB, root)
	}
	cfg.StateFile = resolvePathRelativeTo(cfg.StateFile, root)
	cfg.LogFile = resolvePathRelativeTo(cfg.LogFile, root)

	if _, err := cfg.Expansion(); err != nil {
		return nil, err
	}
	if cfg.Debounce < 0 {
		return nil, fmt.Errorf("debounce must not be negative, got %v", cfg.Debounce)
	}
	return &cfg, nil
}

// Expansion parses the expand setting.
func (c *Config) Expansion() (navtree.Expansion, error) {
	exp, err := navtree.ParseExpansion(c.Expand)
	if err != nil {
		return nil, fmt.Errorf("config expand: %w", err)
	}
	return exp, nil
}

// StateDir returns <root>/.navtree.
func (c *Config) StateDir() string {
	return filepath.Join(c.ProjectRoot, DirName)
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" {
		return path
	}
	path = expandHome(path)
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
