package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/anvil-agent/anvil/internal/adapter"
)

const (
	maxReadLines    = 400
	readHeadLines   = 200
	maxSearchHits   = 100
	maxSearchBytes  = 1 << 20 // skip files over 1MB
	maxListEntries  = 500
	maxCmdLines     = 200
	maxCmdChars     = 4000
	defaultCmdWait  = 60 * time.Second
	maxCmdWait      = 5 * time.Minute
	binarySniffSize = 8000
)

// allowedCommands is the run_cmd allowlist: build tools, linters, file
// utilities, and version control. Anything else is refused up front.
var allowedCommands = map[string]bool{
	"go": true, "gofmt": true, "goimports": true, "golangci-lint": true,
	"npm": true, "npx": true, "yarn": true, "pnpm": true, "node": true, "tsc": true,
	"python": true, "python3": true, "pip": true, "pip3": true, "pytest": true, "uv": true,
	"ruff": true, "black": true, "mypy": true, "flake8": true,
	"cargo": true, "rustc": true, "rustfmt": true,
	"make": true, "cmake": true,
	"git": true,
	"mkdir": true, "touch": true, "rm": true, "cp": true, "mv": true,
	"cat": true, "head": true, "tail": true, "ls": true, "find": true, "tree": true,
	"wc": true, "grep": true, "awk": true, "sed": true, "sort": true, "uniq": true, "diff": true,
	"sh": true, "bash": true,
	"echo": true, "date": true, "which": true, "env": true,
	"tar": true, "zip": true, "unzip": true, "jq": true,
}

func (a *Adapter) readFile(args map[string]any) adapter.Result {
	path, err := a.resolve(strArg(args, "path"))
	if err != nil {
		return adapter.Failure(adapter.CodeInvalidArgs, err.Error(), true)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return adapter.Failure(adapter.CodeFailed, err.Error(), true)
	}

	content := string(data)
	lines := strings.Split(content, "\n")
	if len(lines) <= maxReadLines {
		return adapter.Result{Success: true, Data: content}
	}

	head := strings.Join(lines[:readHeadLines], "\n")
	note := fmt.Sprintf("\n... (%d more lines, %d bytes total; use search_text to locate sections)",
		len(lines)-readHeadLines, len(data))
	return adapter.Result{Success: true, Data: head + note}
}

func (a *Adapter) writeFile(args map[string]any) adapter.Result {
	rel := strArg(args, "path")
	path, err := a.resolve(rel)
	if err != nil {
		return adapter.Failure(adapter.CodeInvalidArgs, err.Error(), true)
	}
	content := strArg(args, "content")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return adapter.Failure(adapter.CodeFailed, err.Error(), true)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return adapter.Failure(adapter.CodeFailed, err.Error(), true)
	}

	a.invalidate()
	return adapter.Result{Success: true, Data: fmt.Sprintf("wrote %d bytes to %s", len(content), rel)}
}

func (a *Adapter) listDir(ctx context.Context, args map[string]any) adapter.Result {
	rel := strArg(args, "path")
	if rel == "" {
		rel = "."
	}
	path, err := a.resolve(rel)
	if err != nil {
		return adapter.Failure(adapter.CodeInvalidArgs, err.Error(), true)
	}
	if err := ctx.Err(); err != nil {
		return ctxFailure(err)
	}

	var b strings.Builder
	count := 0
	truncated := false

	appendEntry := func(entryRel string, isDir bool, size int64) bool {
		if count >= maxListEntries {
			truncated = true
			return false
		}
		if isDir {
			fmt.Fprintf(&b, "%s/\n", entryRel)
		} else {
			fmt.Fprintf(&b, "%s (%d bytes)\n", entryRel, size)
		}
		count++
		return true
	}

	if boolArg(args, "recursive") {
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			entryRel, relErr := filepath.Rel(a.root, p)
			if relErr != nil || entryRel == "." {
				return nil
			}
			if a.ignored(entryRel) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			var size int64
			if info, infoErr := d.Info(); infoErr == nil {
				size = info.Size()
			}
			if !appendEntry(entryRel, d.IsDir(), size) {
				return filepath.SkipAll
			}
			return nil
		})
	} else {
		var entries []fs.DirEntry
		entries, err = os.ReadDir(path)
		for _, e := range entries {
			entryRel := filepath.Join(rel, e.Name())
			if rel == "." {
				entryRel = e.Name()
			}
			if a.ignored(entryRel) {
				continue
			}
			var size int64
			if info, infoErr := e.Info(); infoErr == nil {
				size = info.Size()
			}
			if !appendEntry(entryRel, e.IsDir(), size) {
				break
			}
		}
	}
	if err != nil {
		return ctxFailure(err)
	}

	out := strings.TrimRight(b.String(), "\n")
	if out == "" {
		out = "(empty)"
	}
	if truncated {
		out += fmt.Sprintf("\n... truncated at %d entries", maxListEntries)
	}
	return adapter.Result{Success: true, Data: out}
}

func (a *Adapter) searchText(ctx context.Context, args map[string]any) adapter.Result {
	pattern := strArg(args, "pattern")
	if boolArg(args, "case_insensitive") {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return adapter.Failure(adapter.CodeInvalidArgs, fmt.Sprintf("invalid pattern: %v", err), true)
	}

	rel := strArg(args, "path")
	if rel == "" {
		rel = "."
	}
	start, err := a.resolve(rel)
	if err != nil {
		return adapter.Failure(adapter.CodeInvalidArgs, err.Error(), true)
	}

	var b strings.Builder
	hits := 0

	walkErr := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		entryRel, relErr := filepath.Rel(a.root, p)
		if relErr != nil || entryRel == "." {
			return nil
		}
		if a.ignored(entryRel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil || info.Size() > maxSearchBytes {
			return nil
		}

		data, readErr := os.ReadFile(p)
		if readErr != nil || isBinary(data) {
			return nil
		}

		for i, line := range strings.Split(string(data), "\n") {
			if !re.MatchString(line) {
				continue
			}
			fmt.Fprintf(&b, "%s:%d: %s\n", entryRel, i+1, strings.TrimSpace(line))
			hits++
			if hits >= maxSearchHits {
				return filepath.SkipAll
			}
		}
		return nil
	})
	if walkErr != nil {
		return ctxFailure(walkErr)
	}

	if hits == 0 {
		return adapter.Result{Success: true, Data: "no matches"}
	}
	out := strings.TrimRight(b.String(), "\n")
	if hits >= maxSearchHits {
		out += fmt.Sprintf("\n... truncated at %d matches", maxSearchHits)
	}
	return adapter.Result{Success: true, Data: out}
}

func (a *Adapter) deleteFile(args map[string]any) adapter.Result {
	rel := strArg(args, "path")
	path, err := a.resolve(rel)
	if err != nil {
		return adapter.Failure(adapter.CodeInvalidArgs, err.Error(), true)
	}

	info, err := os.Stat(path)
	if err != nil {
		return adapter.Failure(adapter.CodeFailed, err.Error(), true)
	}
	if info.IsDir() {
		return adapter.Failure(adapter.CodeInvalidArgs, fmt.Sprintf("%s is a directory", rel), true)
	}
	if err := os.Remove(path); err != nil {
		return adapter.Failure(adapter.CodeFailed, err.Error(), true)
	}

	a.invalidate()
	return adapter.Result{Success: true, Data: fmt.Sprintf("deleted %s", rel)}
}

func (a *Adapter) runCmd(ctx context.Context, args map[string]any) adapter.Result {
	command := strArg(args, "command")
	if !allowedCommands[command] {
		return adapter.Failure(adapter.CodeInvalidArgs,
			fmt.Sprintf("command %q is not allowlisted", command), true)
	}

	timeout := defaultCmdWait
	if secs := intArg(args, "timeout_seconds"); secs > 0 {
		timeout = time.Duration(secs) * time.Second
		if timeout > maxCmdWait {
			timeout = maxCmdWait
		}
	}

	res, err := a.runner.RunCmd(ctx, a.root, command, parseArgs(strArg(args, "args")), timeout)
	a.invalidate()

	output := formatCmdOutput(res.Stdout, res.Stderr, res.Code, res.TimedOut)
	if res.TimedOut {
		return adapter.Failure(adapter.CodeTimeout, output, true)
	}
	if err != nil && res.Stdout == "" && res.Stderr == "" {
		return adapter.Failure(adapter.CodeFailed, err.Error(), true)
	}
	if res.Code != 0 {
		return adapter.Failure(adapter.CodeFailed, output, true)
	}
	return adapter.Result{Success: true, Data: output}
}

func formatCmdOutput(stdout, stderr string, code int, timedOut bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "exit %d", code)
	if timedOut {
		b.WriteString(" (timed out)")
	}
	if stdout != "" {
		b.WriteString("\n")
		b.WriteString(truncateOutput(stdout))
	}
	if stderr != "" {
		b.WriteString("\nstderr:\n")
		b.WriteString(truncateOutput(stderr))
	}
	return b.String()
}

// truncateOutput keeps the tail of noisy output; failures usually sit
// at the end.
func truncateOutput(s string) string {
	lines := strings.Split(s, "\n")
	if len(lines) > maxCmdLines {
		lines = lines[len(lines)-maxCmdLines:]
		s = "... (earlier output truncated)\n" + strings.Join(lines, "\n")
	}
	if len(s) > maxCmdChars {
		s = "... " + s[len(s)-maxCmdChars:]
	}
	return s
}

// parseArgs splits an argument string, honoring single and double
// quotes.
func parseArgs(s string) []string {
	var args []string
	var cur strings.Builder
	var quote byte

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				cur.WriteByte(c)
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ' ' || c == '\t':
			if cur.Len() > 0 {
				args = append(args, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		args = append(args, cur.String())
	}
	return args
}

// ctxFailure maps context errors onto the structured failure codes the
// loop distinguishes; anything else is an ordinary execution failure.
func ctxFailure(err error) adapter.Result {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return adapter.Failure(adapter.CodeTimeout, err.Error(), true)
	case errors.Is(err, context.Canceled):
		return adapter.Failure(adapter.CodeCancelled, err.Error(), false)
	}
	return adapter.Failure(adapter.CodeFailed, err.Error(), true)
}

func isBinary(data []byte) bool {
	n := len(data)
	if n > binarySniffSize {
		n = binarySniffSize
	}
	return bytes.IndexByte(data[:n], 0) >= 0
}

func (a *Adapter) invalidate() {
	if a.cache != nil {
		a.cache.Invalidate()
	}
}

func strArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func boolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
