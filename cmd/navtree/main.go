package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/vanderheijden86/navtree/pkg/agents"
	"github.com/vanderheijden86/navtree/pkg/analysis"
	"github.com/vanderheijden86/navtree/pkg/config"
	"github.com/vanderheijden86/navtree/pkg/export"
	"github.com/vanderheijden86/navtree/pkg/loader"
	"github.com/vanderheijden86/navtree/pkg/model"
	"github.com/vanderheijden86/navtree/pkg/navtree"
	"github.com/vanderheijden86/navtree/pkg/store"
	"github.com/vanderheijden86/navtree/pkg/ui"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// options holds the parsed command line.
type options struct {
	items      string
	project    string
	configFile string
	db         string
	expand     string

	robotTree     bool
	robotFlat     bool
	robotDiagnose bool
	robotResolve  bool
	robotProjects bool
	collapse      string
	drag          string
	drop          int
	apply         bool

	exportMD  string
	exportSVG string
	mermaid   bool

	agentsBlurb bool
}

func main() {
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")

	var opts options
	flag.StringVar(&opts.items, "items", "", "Items file(s), comma separated (default: .navtree/items.{json,jsonl,yaml})")
	flag.StringVar(&opts.project, "project", "", "Project root (default: nearest directory with .navtree/)")
	flag.StringVar(&opts.configFile, "config", "", "Config file (default: <project>/.navtree/config.yaml)")
	flag.StringVar(&opts.db, "db", "", "SQLite database mirroring the items (\":memory:\" for a scratch store)")
	flag.StringVar(&opts.expand, "expand", "", "Default expansion: all, none or depth:N")
	flag.BoolVar(&opts.robotTree, "robot-tree", false, "Output the nested tree as JSON")
	flag.BoolVar(&opts.robotFlat, "robot-flat", false, "Output the visible rows as JSON (use with --collapse)")
	flag.BoolVar(&opts.robotDiagnose, "robot-diagnose", false, "Output structural findings as JSON")
	flag.BoolVar(&opts.robotResolve, "robot-resolve", false, "Resolve a drop as JSON (use with --drag and --drop)")
	flag.BoolVar(&opts.robotProjects, "robot-projects", false, "Output discovered navtree projects as JSON")
	flag.StringVar(&opts.collapse, "collapse", "", "Folder ids to collapse, comma separated")
	flag.StringVar(&opts.drag, "drag", "", "Id of the dragged item (with --robot-resolve)")
	flag.IntVar(&opts.drop, "drop", -1, "Drop gap in the visible rows without the dragged subtree (with --robot-resolve)")
	flag.BoolVar(&opts.apply, "apply", false, "Persist the resolved move (with --robot-resolve)")
	flag.StringVar(&opts.exportMD, "export-md", "", "Export the tree to a Markdown file")
	flag.StringVar(&opts.exportSVG, "export-svg", "", "Export the tree outline to an SVG file")
	flag.BoolVar(&opts.mermaid, "mermaid", false, "Include a Mermaid graph in --export-md")
	flag.BoolVar(&opts.agentsBlurb, "agents-blurb", false, "Add or update the navtree section in AGENTS.md")
	flag.Parse()

	if agents.ShouldSuppressTTYQueries(os.Args, os.Getenv("NAVTREE_ROBOT") != "", os.Getenv("NAVTREE_TEST") != "") {
		lipgloss.SetHasDarkBackground(true)
	}

	if *help {
		fmt.Println("Usage: navtree [options]")
		fmt.Println("\nA terminal editor for ordered navigation trees.")
		fmt.Println("\nOptions:")
		flag.PrintDefaults()
		os.Exit(0)
	}
	if *versionFlag {
		fmt.Printf("navtree %s\n", version)
		os.Exit(0)
	}

	if err := run(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// workspace is everything loaded for one invocation.
type workspace struct {
	cfg   *config.Config
	exp   navtree.Expansion
	paths []string
	items []model.NavigationItem
	store *store.Store
}

// writablePath returns the items file that receives edits, or "" when
// several files were merged.
func (w *workspace) writablePath() string {
	if len(w.paths) == 1 {
		return w.paths[0]
	}
	return ""
}

// readOnly reports whether edits have nowhere durable to go. Merged files
// are refreshed into the database on every open, so a database alone cannot
// keep edits made over several files.
func (w *workspace) readOnly() bool {
	return len(w.paths) > 1 || (len(w.paths) == 0 && w.store == nil)
}

// writer returns the UI write backend, unavailable for read-only workspaces.
func (w *workspace) writer() *ui.ItemWriter {
	if w.readOnly() {
		return ui.NewItemWriter("", nil)
	}
	return ui.NewItemWriter(w.writablePath(), w.store)
}

func (w *workspace) Close() {
	if w.store != nil {
		if err := w.store.Close(); err != nil {
			log.Printf("warning: closing database: %v", err)
		}
	}
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	cfg, err := config.Load(config.LoadOptions{ProjectRoot: opts.project, ConfigFile: opts.configFile})
	if err != nil {
		return err
	}

	if opts.robotProjects {
		out := robotProjectsOutput{Projects: config.DiscoverProjects(*cfg)}
		if out.Projects == nil {
			out.Projects = []config.Project{}
		}
		if root, ok := config.DetectCurrentProject(); ok {
			out.Current = root
		}
		return encodeJSON(stdout, out)
	}
	if opts.agentsBlurb {
		path, changed, err := agents.EnsureBlurb(cfg.ProjectRoot)
		if err != nil {
			return err
		}
		if changed {
			fmt.Fprintf(stdout, "Updated %s\n", path)
		} else {
			fmt.Fprintf(stdout, "%s is up to date\n", path)
		}
		return nil
	}

	ws, err := openWorkspace(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer ws.Close()

	switch {
	case opts.robotTree:
		tree := navtree.Build(ws.items)
		return encodeJSON(stdout, robotTreeOutput{
			GeneratedAt: now(),
			DataHash:    analysis.ComputeDataHash(ws.items),
			ItemCount:   len(ws.items),
			Roots:       treeJSON(tree),
		})
	case opts.robotFlat:
		tree := navtree.Build(ws.items)
		exp := collapseOver(ws.exp, opts.collapse)
		rows := navtree.Flatten(tree.Roots(), exp, navtree.FlattenOptions{})
		return encodeJSON(stdout, robotFlatOutput{GeneratedAt: now(), RowCount: len(rows), Rows: flatJSON(rows, exp)})
	case opts.robotDiagnose:
		return encodeJSON(stdout, robotDiagnoseOutput{GeneratedAt: now(), Report: analysis.Diagnose(ws.items)})
	case opts.robotResolve:
		out, err := resolveMove(ctx, ws, opts)
		if err != nil {
			return err
		}
		return encodeJSON(stdout, out)
	}

	if opts.exportMD != "" || opts.exportSVG != "" {
		return runExports(ws, opts, stdout)
	}

	return runTUI(ws)
}

// openWorkspace resolves the item sources, loads them and opens the store.
// With both a file and a database the file wins and the database is
// refreshed from it; with only a database the items come from the store.
func openWorkspace(ctx context.Context, cfg *config.Config, opts options) (*workspace, error) {
	ws := &workspace{cfg: cfg}

	expand := cfg.Expand
	if opts.expand != "" {
		expand = opts.expand
	}
	exp, err := navtree.ParseExpansion(expand)
	if err != nil {
		return nil, err
	}
	ws.exp = exp

	ws.paths = itemPaths(cfg, opts.items)

	dbPath := cfg.DB
	if opts.db != "" {
		dbPath = opts.db
	}
	if dbPath != "" {
		st, err := store.Open(ctx, dbPath)
		if err != nil {
			return nil, err
		}
		ws.store = st
	}

	switch {
	case len(ws.paths) > 0:
		items, err := loader.LoadAll(ctx, ws.paths)
		if err != nil {
			ws.Close()
			return nil, err
		}
		ws.items = items
		if ws.store != nil {
			if err := ws.store.ReplaceAll(ctx, items); err != nil {
				ws.Close()
				return nil, fmt.Errorf("syncing database: %w", err)
			}
		}
	case ws.store != nil:
		items, err := ws.store.List(ctx)
		if err != nil {
			ws.Close()
			return nil, err
		}
		ws.items = items
	default:
		return nil, fmt.Errorf("no items file found under %s (use --items or --db)", cfg.ProjectRoot)
	}
	return ws, nil
}

// itemPaths returns the explicit --items list, the configured file, or the
// discovered default file, in that order of preference.
func itemPaths(cfg *config.Config, flagValue string) []string {
	if flagValue != "" {
		var paths []string
		for _, p := range strings.Split(flagValue, ",") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
		return paths
	}
	if cfg.Items != "" {
		return []string{cfg.Items}
	}
	if found, err := loader.FindItemsFile(cfg.ProjectRoot); err == nil {
		return []string{found}
	}
	return nil
}

// collapseOver collapses the comma separated ids on top of base.
func collapseOver(base navtree.Expansion, ids string) navtree.Expansion {
	if strings.TrimSpace(ids) == "" {
		return base
	}
	set := navtree.ExpandedSet{IDs: map[string]bool{}, Default: base}
	for _, id := range strings.Split(ids, ",") {
		if id = strings.TrimSpace(id); id != "" {
			set.IDs[id] = false
		}
	}
	return set
}

// resolveMove answers --robot-resolve. The drop gap addresses the visible
// rows with the dragged subtree removed, exactly as the drop marker does in
// the UI.
func resolveMove(ctx context.Context, ws *workspace, opts options) (robotResolveOutput, error) {
	out := robotResolveOutput{Drag: opts.drag, Drop: opts.drop, Plan: []navtree.Patch{}}
	if opts.drag == "" || opts.drop < 0 {
		return out, errors.New("--robot-resolve needs --drag ID and --drop N")
	}
	tree := navtree.Build(ws.items)
	if _, ok := tree.Node(opts.drag); !ok {
		return out, fmt.Errorf("unknown item %q", opts.drag)
	}

	exp := collapseOver(ws.exp, opts.collapse)
	rows := navtree.Flatten(tree.Roots(), exp, navtree.FlattenOptions{HiddenSubtreeRootID: opts.drag})
	out.Intent = tree.ResolveDrop(rows, opts.drag, opts.drop)
	if out.Intent == nil {
		return out, nil
	}
	out.Plan = tree.PlanMove(*out.Intent)

	if !opts.apply {
		return out, nil
	}
	if ws.readOnly() {
		return out, errors.New("--apply needs exactly one items file, or a database as the only item source")
	}
	path := ws.writablePath()
	if ws.store != nil {
		if err := ws.store.ApplyPlan(ctx, out.Plan); err != nil {
			return out, fmt.Errorf("applying move to database: %w", err)
		}
	}
	if path != "" {
		if err := loader.SaveItems(path, navtree.ApplyPatches(ws.items, out.Plan)); err != nil {
			return out, err
		}
	}
	out.Applied = true
	return out, nil
}

func runExports(ws *workspace, opts options, stdout io.Writer) error {
	tree := navtree.Build(ws.items)
	if opts.exportMD != "" {
		fmt.Fprintf(stdout, "Exporting to %s...\n", opts.exportMD)
		mdOpts := export.MarkdownOptions{
			Title:     filepath.Base(ws.cfg.ProjectRoot) + " navigation",
			Expansion: ws.exp,
			Mermaid:   opts.mermaid,
		}
		if err := export.SaveMarkdownToFile(tree, opts.exportMD, mdOpts); err != nil {
			return fmt.Errorf("exporting markdown: %w", err)
		}
	}
	if opts.exportSVG != "" {
		fmt.Fprintf(stdout, "Exporting to %s...\n", opts.exportSVG)
		if err := export.SaveSVGToFile(tree, opts.exportSVG, ws.exp); err != nil {
			return fmt.Errorf("exporting svg: %w", err)
		}
	}
	fmt.Fprintln(stdout, "Done!")
	return nil
}

func runTUI(ws *workspace) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("stdout is not a terminal; use --robot-tree, --robot-flat or --robot-diagnose")
	}

	// Anything logged to stderr would corrupt the screen.
	log.SetOutput(io.Discard)
	if err := os.MkdirAll(filepath.Dir(ws.cfg.LogFile), 0o755); err == nil {
		if f, err := tea.LogToFile(ws.cfg.LogFile, "navtree"); err == nil {
			defer f.Close()
		}
	}
	if err := loader.EnsureNavtreeInGitignore(ws.cfg.ProjectRoot); err != nil {
		log.Printf("warning: updating .gitignore: %v", err)
	}

	path := ws.writablePath()
	m := ui.NewModel(ws.items, ui.Options{
		Title:      filepath.Base(ws.cfg.ProjectRoot),
		StatePath:  ws.cfg.StateFile,
		Expansion:  ws.exp,
		AutoSelect: true,
		Writer:     ws.writer(),
	})
	p := tea.NewProgram(m, tea.WithAltScreen())

	worker, err := ui.NewBackgroundWorker(ui.WorkerConfig{
		ItemsPath:     path,
		DebounceDelay: ws.cfg.Debounce,
		Program:       p,
	})
	if err != nil {
		return err
	}
	worker.SetBaseline(analysis.ComputeDataHash(ws.items))
	if err := worker.Start(); err != nil {
		log.Printf("warning: live reload disabled: %v", err)
	}
	defer worker.Stop()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running navtree: %w", err)
	}
	return nil
}
