package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anvil-agent/anvil/internal/adapter"
	"github.com/anvil-agent/anvil/internal/sandbox"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	a, err := New(t.TempDir(), &sandbox.HostRunner{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { a.Disconnect() })
	return a
}

func exec(t *testing.T, a *Adapter, name string, args map[string]any) adapter.Result {
	t.Helper()
	return a.Execute(context.Background(), adapter.Call{ID: "t", Name: name, Args: args})
}

func TestWriteThenReadRoundtrip(t *testing.T) {
	a := newTestAdapter(t)

	res := exec(t, a, "write_file", map[string]any{
		"path":    "notes/hello.txt",
		"content": "first line\nsecond line",
	})
	if !res.Success {
		t.Fatalf("write_file failed: %+v", res.Err)
	}
	if !strings.Contains(res.Data, "notes/hello.txt") {
		t.Errorf("write confirmation missing path: %q", res.Data)
	}

	res = exec(t, a, "read_file", map[string]any{"path": "notes/hello.txt"})
	if !res.Success {
		t.Fatalf("read_file failed: %+v", res.Err)
	}
	if res.Data != "first line\nsecond line" {
		t.Errorf("read back %q", res.Data)
	}
}

func TestReadTruncatesLongFiles(t *testing.T) {
	a := newTestAdapter(t)

	lines := make([]string, maxReadLines+50)
	for i := range lines {
		lines[i] = "line"
	}
	if err := os.WriteFile(filepath.Join(a.Root(), "big.txt"), []byte(strings.Join(lines, "\n")), 0644); err != nil {
		t.Fatal(err)
	}

	res := exec(t, a, "read_file", map[string]any{"path": "big.txt"})
	if !res.Success {
		t.Fatalf("read_file failed: %+v", res.Err)
	}
	if got := strings.Count(res.Data, "\n"); got > readHeadLines+2 {
		t.Errorf("expected truncated head, got %d lines", got)
	}
	if !strings.Contains(res.Data, "more lines") {
		t.Errorf("truncation note missing: %q", res.Data[len(res.Data)-100:])
	}
}

func TestReadMissingFileFails(t *testing.T) {
	a := newTestAdapter(t)

	res := exec(t, a, "read_file", map[string]any{"path": "nope.txt"})
	if res.Success {
		t.Fatal("expected failure for missing file")
	}
	if res.Err.Code != adapter.CodeFailed {
		t.Errorf("code = %s, want %s", res.Err.Code, adapter.CodeFailed)
	}
}

func TestPathEscapeRejected(t *testing.T) {
	a := newTestAdapter(t)

	for _, p := range []string{"../outside.txt", "a/../../outside.txt"} {
		res := exec(t, a, "read_file", map[string]any{"path": p})
		if res.Success {
			t.Errorf("path %q escaped the workspace", p)
			continue
		}
		if res.Err.Code != adapter.CodeInvalidArgs {
			t.Errorf("path %q: code = %s, want %s", p, res.Err.Code, adapter.CodeInvalidArgs)
		}
	}
}

func TestListDirSkipsIgnoredEntries(t *testing.T) {
	a := newTestAdapter(t)

	for _, f := range []string{"main.go", "node_modules/pkg/index.js", "src/util.go"} {
		p := filepath.Join(a.Root(), f)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	res := exec(t, a, "list_dir", map[string]any{"recursive": true})
	if !res.Success {
		t.Fatalf("list_dir failed: %+v", res.Err)
	}
	if !strings.Contains(res.Data, "main.go") || !strings.Contains(res.Data, filepath.Join("src", "util.go")) {
		t.Errorf("listing missing expected files:\n%s", res.Data)
	}
	if strings.Contains(res.Data, "node_modules") {
		t.Errorf("ignored directory leaked into listing:\n%s", res.Data)
	}
}

func TestListDirEmpty(t *testing.T) {
	a := newTestAdapter(t)

	res := exec(t, a, "list_dir", map[string]any{})
	if !res.Success {
		t.Fatalf("list_dir failed: %+v", res.Err)
	}
	if res.Data != "(empty)" {
		t.Errorf("got %q, want (empty)", res.Data)
	}
}

func TestSearchTextFindsMatchesWithLocation(t *testing.T) {
	a := newTestAdapter(t)

	content := "package main\n\nfunc Handler() {}\n"
	if err := os.WriteFile(filepath.Join(a.Root(), "main.go"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	res := exec(t, a, "search_text", map[string]any{"pattern": "func Handler"})
	if !res.Success {
		t.Fatalf("search_text failed: %+v", res.Err)
	}
	if !strings.Contains(res.Data, "main.go:3:") {
		t.Errorf("hit location missing: %q", res.Data)
	}

	res = exec(t, a, "search_text", map[string]any{"pattern": "FUNC handler", "case_insensitive": true})
	if !res.Success || !strings.Contains(res.Data, "main.go:3:") {
		t.Errorf("case-insensitive search missed: %+v", res)
	}

	res = exec(t, a, "search_text", map[string]any{"pattern": "absent_symbol"})
	if !res.Success || res.Data != "no matches" {
		t.Errorf("expected no matches, got %+v", res)
	}
}

func TestSearchTextRejectsBadPattern(t *testing.T) {
	a := newTestAdapter(t)

	res := exec(t, a, "search_text", map[string]any{"pattern": "("})
	if res.Success || res.Err.Code != adapter.CodeInvalidArgs {
		t.Errorf("expected invalid_args, got %+v", res)
	}
}

func TestDeleteFile(t *testing.T) {
	a := newTestAdapter(t)

	if err := os.WriteFile(filepath.Join(a.Root(), "gone.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(a.Root(), "keep"), 0755); err != nil {
		t.Fatal(err)
	}

	res := exec(t, a, "delete_file", map[string]any{"path": "gone.txt"})
	if !res.Success {
		t.Fatalf("delete_file failed: %+v", res.Err)
	}
	if _, err := os.Stat(filepath.Join(a.Root(), "gone.txt")); !os.IsNotExist(err) {
		t.Error("file still present after delete")
	}

	res = exec(t, a, "delete_file", map[string]any{"path": "keep"})
	if res.Success || res.Err.Code != adapter.CodeInvalidArgs {
		t.Errorf("deleting a directory should be refused, got %+v", res)
	}
}

func TestRunCmdAllowlist(t *testing.T) {
	a := newTestAdapter(t)

	res := exec(t, a, "run_cmd", map[string]any{"command": "curl", "args": "http://example.com"})
	if res.Success {
		t.Fatal("non-allowlisted command should be refused")
	}
	if res.Err.Code != adapter.CodeInvalidArgs {
		t.Errorf("code = %s, want %s", res.Err.Code, adapter.CodeInvalidArgs)
	}

	res = exec(t, a, "run_cmd", map[string]any{"command": "echo", "args": "hello workspace"})
	if !res.Success {
		t.Fatalf("echo failed: %+v", res.Err)
	}
	if !strings.Contains(res.Data, "exit 0") || !strings.Contains(res.Data, "hello workspace") {
		t.Errorf("unexpected output: %q", res.Data)
	}
}

func TestUnknownActionRefused(t *testing.T) {
	a := newTestAdapter(t)

	res := exec(t, a, "format_disk", nil)
	if res.Success || res.Err.Code != adapter.CodeUnknownAction {
		t.Errorf("expected unknown_action, got %+v", res)
	}
}

func TestAwarenessSummarizesTree(t *testing.T) {
	a := newTestAdapter(t)

	for _, f := range []string{"main.go", "util.go", "docs/readme.md"} {
		p := filepath.Join(a.Root(), f)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	data, err := a.Awareness(context.Background(), adapter.AwarenessOptions{})
	if err != nil {
		t.Fatalf("Awareness: %v", err)
	}
	if !strings.Contains(data.Summary, "3 files") {
		t.Errorf("summary = %q", data.Summary)
	}
	if !strings.Contains(data.Summary, ".go x2") {
		t.Errorf("extension histogram missing from summary: %q", data.Summary)
	}
	skeleton := strings.Join(data.Skeleton, "\n")
	if !strings.Contains(skeleton, "docs/") || !strings.Contains(skeleton, "main.go") {
		t.Errorf("skeleton missing entries: %v", data.Skeleton)
	}
	if len(data.Relevant) == 0 {
		t.Error("no relevant files reported")
	}
	if data.TokensUsed <= 0 {
		t.Error("token estimate not set")
	}
}

func TestAwarenessCachedUntilMutation(t *testing.T) {
	a := newTestAdapter(t)

	data, err := a.Awareness(context.Background(), adapter.AwarenessOptions{})
	if err != nil {
		t.Fatalf("Awareness: %v", err)
	}
	if !strings.Contains(data.Summary, "0 files") {
		t.Fatalf("summary = %q", data.Summary)
	}

	// Bypassing Execute leaves the cache untouched until the watcher's
	// debounce fires, so the stale summary is served.
	if err := os.WriteFile(filepath.Join(a.Root(), "direct.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if res := exec(t, a, "write_file", map[string]any{"path": "via_action.txt", "content": "y"}); !res.Success {
		t.Fatalf("write_file failed: %+v", res.Err)
	}

	data, err = a.Awareness(context.Background(), adapter.AwarenessOptions{})
	if err != nil {
		t.Fatalf("Awareness after mutation: %v", err)
	}
	if !strings.Contains(data.Summary, "2 files") {
		t.Errorf("mutation did not refresh snapshot: %q", data.Summary)
	}
}

func TestAwarenessDropsSkeletonUnderTightBudget(t *testing.T) {
	a := newTestAdapter(t)

	for i := 0; i < 5; i++ {
		name := filepath.Join(a.Root(), "pkg", "file"+strings.Repeat("x", i)+".go")
		if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(name, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	data, err := a.Awareness(context.Background(), adapter.AwarenessOptions{MaxTokens: 1})
	if err != nil {
		t.Fatalf("Awareness: %v", err)
	}
	if len(data.Skeleton) != 0 {
		t.Errorf("skeleton should be dropped under a tight budget: %v", data.Skeleton)
	}
	if data.Summary == "" {
		t.Error("summary must survive the budget cut")
	}
}

func TestIgnoredDirectoryEntryItselfExcluded(t *testing.T) {
	a := newTestAdapter(t)

	for _, f := range []string{"src/main.go", "vendor/lib/lib.go", "node_modules/pkg/index.js"} {
		p := filepath.Join(a.Root(), f)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	// The bare directory entry must be excluded, not only its children.
	res := exec(t, a, "list_dir", map[string]any{})
	if !res.Success {
		t.Fatalf("list_dir failed: %+v", res.Err)
	}
	if strings.Contains(res.Data, "vendor") || strings.Contains(res.Data, "node_modules") {
		t.Errorf("ignored directory entry leaked into flat listing:\n%s", res.Data)
	}

	data, err := a.Awareness(context.Background(), adapter.AwarenessOptions{})
	if err != nil {
		t.Fatalf("Awareness: %v", err)
	}
	skeleton := strings.Join(data.Skeleton, "\n")
	if strings.Contains(skeleton, "vendor") || strings.Contains(skeleton, "node_modules") {
		t.Errorf("ignored directory leaked into skeleton: %v", data.Skeleton)
	}
	if !strings.Contains(skeleton, "src/") {
		t.Errorf("skeleton lost a real directory: %v", data.Skeleton)
	}
	if !strings.Contains(data.Summary, "1 files") {
		t.Errorf("ignored files counted in summary: %q", data.Summary)
	}
}

func TestWalkActionsHonorCancelledContext(t *testing.T) {
	a := newTestAdapter(t)

	if err := os.WriteFile(filepath.Join(a.Root(), "a.txt"), []byte("needle"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, call := range []adapter.Call{
		{ID: "t", Name: "list_dir", Args: map[string]any{"recursive": true}},
		{ID: "t", Name: "search_text", Args: map[string]any{"pattern": "needle"}},
	} {
		res := a.Execute(ctx, call)
		if res.Success {
			t.Errorf("%s succeeded under a cancelled context", call.Name)
			continue
		}
		if res.Err.Code != adapter.CodeCancelled {
			t.Errorf("%s: code = %s, want %s", call.Name, res.Err.Code, adapter.CodeCancelled)
		}
	}
}

func TestCatalogCoversDispatch(t *testing.T) {
	a := newTestAdapter(t)

	cat := a.Catalog()
	for _, name := range []string{"read_file", "write_file", "list_dir", "search_text", "delete_file", "run_cmd"} {
		s, ok := cat.Schema(name)
		if !ok {
			t.Errorf("catalog missing %s", name)
			continue
		}
		if s.InputSchema == "" {
			t.Errorf("%s has no input schema", name)
		}
	}
	for _, name := range []string{"write_file", "delete_file", "run_cmd"} {
		if !cat.Mutates(name) {
			t.Errorf("%s should be classified mutating", name)
		}
	}
	for _, name := range []string{"read_file", "list_dir", "search_text"} {
		if cat.Mutates(name) {
			t.Errorf("%s should be read-only", name)
		}
	}
}
