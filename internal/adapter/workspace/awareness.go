package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/anvil-agent/anvil/internal/adapter"
	"github.com/anvil-agent/anvil/internal/awareness"
	"github.com/anvil-agent/anvil/internal/budget"
)

const (
	maxSkeletonLines = 60
	maxRelevantFiles = 10
)

// Awareness reports the current shape of the workspace. The snapshot is
// cached; the filesystem watcher and mutating actions invalidate it, so
// an unchanged tree costs no walk.
func (a *Adapter) Awareness(ctx context.Context, opts adapter.AwarenessOptions) (adapter.AwarenessData, error) {
	if a.cache != nil && !a.cache.NeedsRefresh() {
		if snap := a.cache.Snapshot(); snap != nil {
			return snapshotData(snap, opts.MaxTokens), nil
		}
	}

	snap, err := a.buildSnapshot(ctx)
	if err != nil {
		return adapter.AwarenessData{}, err
	}
	if a.cache != nil {
		a.cache.Update(snap)
	}
	return snapshotData(snap, opts.MaxTokens), nil
}

func snapshotData(snap *awareness.Snapshot, maxTokens int) adapter.AwarenessData {
	data := adapter.AwarenessData{
		Summary:    snap.Summary,
		Skeleton:   snap.Skeleton,
		Relevant:   snap.Relevant,
		TokensUsed: snap.Tokens,
	}
	// A tight budget drops the skeleton before the summary.
	if maxTokens > 0 && data.TokensUsed > maxTokens {
		data.Skeleton = nil
		data.TokensUsed = budget.Estimate(data.Summary + strings.Join(data.Relevant, "\n"))
	}
	return data
}

type fileStat struct {
	rel   string
	mtime time.Time
}

func (a *Adapter) buildSnapshot(ctx context.Context) (*awareness.Snapshot, error) {
	var (
		fileCount int
		dirCount  int
		extCounts = map[string]int{}
		skeleton  []string
		recent    []fileStat
	)

	err := filepath.WalkDir(a.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, relErr := filepath.Rel(a.root, p)
		if relErr != nil || rel == "." {
			return nil
		}
		if a.ignored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		depth := strings.Count(rel, string(filepath.Separator))
		if d.IsDir() {
			dirCount++
			if depth <= 1 && len(skeleton) < maxSkeletonLines {
				skeleton = append(skeleton, rel+"/")
			}
			return nil
		}

		fileCount++
		if ext := strings.ToLower(filepath.Ext(rel)); ext != "" {
			extCounts[ext]++
		}
		if depth == 0 && len(skeleton) < maxSkeletonLines {
			skeleton = append(skeleton, rel)
		}
		if info, infoErr := d.Info(); infoErr == nil {
			recent = append(recent, fileStat{rel: rel, mtime: info.ModTime()})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk workspace: %w", err)
	}

	sort.Slice(recent, func(i, j int) bool { return recent[i].mtime.After(recent[j].mtime) })
	if len(recent) > maxRelevantFiles {
		recent = recent[:maxRelevantFiles]
	}
	relevant := make([]string, 0, len(recent))
	for _, f := range recent {
		relevant = append(relevant, f.rel)
	}

	sort.Strings(skeleton)

	summary := fmt.Sprintf("workspace %s: %d files in %d directories%s",
		filepath.Base(a.root), fileCount, dirCount, topExtensions(extCounts))

	snap := &awareness.Snapshot{
		Summary:   summary,
		Skeleton:  skeleton,
		Relevant:  relevant,
		FetchedAt: time.Now(),
	}
	snap.Tokens = budget.Estimate(summary + strings.Join(skeleton, "\n") + strings.Join(relevant, "\n"))
	return snap, nil
}

func topExtensions(counts map[string]int) string {
	type entry struct {
		ext string
		n   int
	}
	entries := make([]entry, 0, len(counts))
	for ext, n := range counts {
		entries = append(entries, entry{ext, n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].n != entries[j].n {
			return entries[i].n > entries[j].n
		}
		return entries[i].ext < entries[j].ext
	})
	if len(entries) > 3 {
		entries = entries[:3]
	}
	if len(entries) == 0 {
		return ""
	}
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("%s x%d", e.ext, e.n))
	}
	return " (mostly " + strings.Join(parts, ", ") + ")"
}
