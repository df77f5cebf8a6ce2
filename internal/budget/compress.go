package budget

import (
	"fmt"
	"strings"
)

// Category names shared between the budget manager and the loop. The
// compressors below are keyed by these, so content degrades in a way
// that fits what the category holds rather than by blind truncation.
const (
	CategorySystem      = "system"
	CategoryAwareness   = "awareness"
	CategoryTasks       = "tasks"
	CategoryCorrections = "corrections"
	CategoryHistory     = "history"
)

// countOnlyPlaceholder is the universal floor: content is never fully
// erased, only deferred to on-demand retrieval.
func countOnlyPlaceholder(category string, originalTokens int) string {
	return fmt.Sprintf("[%s: %d tokens compressed; retrievable on demand]", category, originalTokens)
}

// compressContent reduces content to the target level using a
// category-aware strategy.
func compressContent(category, content string, target Level, originalTokens int) string {
	if target == LevelCountOnly {
		return countOnlyPlaceholder(category, originalTokens)
	}

	switch category {
	case CategoryHistory:
		return compressHistory(content, target)
	case CategoryAwareness:
		return compressItemList(category, content, target)
	case CategoryTasks:
		return compressItemList(category, content, target)
	default:
		return compressGeneric(content, target)
	}
}

// compressHistory keeps the most recent operations; older lines are the
// first to go under budget pressure.
func compressHistory(content string, target Level) string {
	lines := nonEmptyLines(content)

	keep := 12
	if target == LevelMinimal {
		keep = 4
	}
	if len(lines) <= keep {
		return content
	}

	omitted := len(lines) - keep
	kept := lines[len(lines)-keep:]
	return fmt.Sprintf("[%d earlier operations omitted]\n%s", omitted, strings.Join(kept, "\n"))
}

// compressItemList reduces structured listings (domain state, task
// lists) toward element counts.
func compressItemList(category, content string, target Level) string {
	lines := nonEmptyLines(content)

	if target == LevelSummary {
		keep := 20
		if len(lines) <= keep {
			return content
		}
		kept := lines[:keep]
		return fmt.Sprintf("%s\n[... %d more items]", strings.Join(kept, "\n"), len(lines)-keep)
	}

	// Minimal: item count plus the first line as a hint.
	head := ""
	if len(lines) > 0 {
		head = lines[0]
	}
	return fmt.Sprintf("[%s: %d items] %s", category, len(lines), head)
}

// compressGeneric is head+tail truncation for categories without a
// dedicated strategy.
func compressGeneric(content string, target Level) string {
	maxChars := 2000
	if target == LevelMinimal {
		maxChars = 400
	}
	if len(content) <= maxChars {
		return content
	}

	head := content[:maxChars/2]
	tail := content[len(content)-maxChars/2:]
	return head + "\n...\n" + tail
}

func nonEmptyLines(content string) []string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
