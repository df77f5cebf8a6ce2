// Package workspace adapts a local directory tree as the loop's
// external domain. Actions cover reading, writing, listing, searching,
// and sandboxed command execution; awareness summarizes the tree and is
// invalidated by a filesystem watcher when the tree changes underneath
// the loop.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/anvil-agent/anvil/internal/adapter"
	"github.com/anvil-agent/anvil/internal/awareness"
	"github.com/anvil-agent/anvil/internal/sandbox"
)

// DefaultIgnorePatterns are always excluded from listing, search, and
// awareness, on top of the workspace's own .gitignore.
var DefaultIgnorePatterns = []string{
	".git/",
	"node_modules/",
	"vendor/",
	"dist/",
	"build/",
	"target/",
	"__pycache__/",
	".venv/",
	"*.min.js",
	"*.lock",
}

// Adapter implements adapter.Adapter over a directory tree.
type Adapter struct {
	root    string
	runner  sandbox.Runner
	ignore  gitignore.IgnoreParser
	cache   *awareness.Cache
	watcher *awareness.Watcher
}

// New creates an adapter rooted at root. runner may be nil; Connect
// then picks the default sandbox runner from the environment.
func New(root string, runner sandbox.Runner) (*Adapter, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat workspace root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", abs)
	}
	return &Adapter{root: abs, runner: runner}, nil
}

// Root returns the absolute workspace root.
func (a *Adapter) Root() string { return a.root }

// Connect compiles the ignore patterns and starts the change watcher.
func (a *Adapter) Connect(ctx context.Context) error {
	patterns := append([]string(nil), DefaultIgnorePatterns...)
	patterns = append(patterns, gitignoreLines(filepath.Join(a.root, ".gitignore"))...)
	a.ignore = gitignore.CompileIgnoreLines(patterns...)

	if a.runner == nil {
		a.runner = sandbox.NewDefaultRunner()
	}

	a.cache = awareness.NewCache(0)
	watcher, err := awareness.NewWatcher(a.root, a.cache, a.ignore)
	if err != nil {
		return fmt.Errorf("create workspace watcher: %w", err)
	}
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("start workspace watcher: %w", err)
	}
	a.watcher = watcher
	return nil
}

// Disconnect stops the watcher.
func (a *Adapter) Disconnect() error {
	if a.watcher == nil {
		return nil
	}
	err := a.watcher.Stop()
	a.watcher = nil
	return err
}

// Execute dispatches one action call.
func (a *Adapter) Execute(ctx context.Context, call adapter.Call) adapter.Result {
	switch call.Name {
	case "read_file":
		return a.readFile(call.Args)
	case "write_file":
		return a.writeFile(call.Args)
	case "list_dir":
		return a.listDir(ctx, call.Args)
	case "search_text":
		return a.searchText(ctx, call.Args)
	case "delete_file":
		return a.deleteFile(call.Args)
	case "run_cmd":
		return a.runCmd(ctx, call.Args)
	default:
		return adapter.Failure(adapter.CodeUnknownAction, fmt.Sprintf("unknown action %q", call.Name), true)
	}
}

// resolve joins a relative path under the root and rejects escapes.
func (a *Adapter) resolve(rel string) (string, error) {
	p := filepath.Clean(filepath.Join(a.root, rel))
	if p != a.root && !strings.HasPrefix(p, a.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside the workspace", rel)
	}
	return p, nil
}

// ignored also tests rel with a trailing slash so directory patterns
// like "node_modules/" match the bare directory entry itself, not just
// its children.
func (a *Adapter) ignored(rel string) bool {
	if a.ignore == nil || rel == "." {
		return false
	}
	return a.ignore.MatchesPath(rel) || a.ignore.MatchesPath(rel+"/")
}

func gitignoreLines(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
