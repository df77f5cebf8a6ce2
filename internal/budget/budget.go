package budget

import (
	"fmt"
	"strings"
)

// CategoryConfig describes one named share of the total token budget.
type CategoryConfig struct {
	Name     string
	Percent  int  // share of the total, all categories must sum to 100
	Priority int  // 0-100, higher priority categories are cut last
	Required bool // never evicted; over-allocation surfaces a warning instead
}

// ChunkTooLargeError is returned by Add when a chunk cannot be made to
// fit its category's remaining allowance even at maximum compression.
type ChunkTooLargeError struct {
	Category string
	Tokens   int
	Allowed  int
}

func (e *ChunkTooLargeError) Error() string {
	return fmt.Sprintf("chunk too large for category %q: %d tokens, %d allowed", e.Category, e.Tokens, e.Allowed)
}

// Manager tracks a fixed total token ceiling split across categories.
// Allocations are fixed for the lifetime of the manager; consumption is
// tracked live as chunks are added and compressed.
type Manager struct {
	total    int
	order    []string // registration order, also the composition order
	configs  map[string]CategoryConfig
	alloc    map[string]int
	used     map[string]int
	chunks   map[string][]*Chunk
	warnings []string
}

// New validates the category shares and computes fixed allocations.
// Category percentages must sum to exactly 100.
func New(total int, categories []CategoryConfig) (*Manager, error) {
	if total <= 0 {
		return nil, fmt.Errorf("total budget must be positive, got %d", total)
	}

	sum := 0
	m := &Manager{
		total:   total,
		configs: make(map[string]CategoryConfig, len(categories)),
		alloc:   make(map[string]int, len(categories)),
		used:    make(map[string]int, len(categories)),
		chunks:  make(map[string][]*Chunk, len(categories)),
	}
	for _, c := range categories {
		if _, dup := m.configs[c.Name]; dup {
			return nil, fmt.Errorf("duplicate category %q", c.Name)
		}
		sum += c.Percent
		m.order = append(m.order, c.Name)
		m.configs[c.Name] = c
		m.alloc[c.Name] = total * c.Percent / 100
	}
	if sum != 100 {
		return nil, fmt.Errorf("category percentages must sum to 100, got %d", sum)
	}
	return m, nil
}

// Total returns the configured token ceiling.
func (m *Manager) Total() int { return m.total }

// Allocated returns the fixed allocation for a category.
func (m *Manager) Allocated(category string) int { return m.alloc[category] }

// Used returns the tokens currently consumed by a category.
func (m *Manager) Used(category string) int { return m.used[category] }

// TotalUsed returns tokens consumed across all categories.
func (m *Manager) TotalUsed() int {
	total := 0
	for _, u := range m.used {
		total += u
	}
	return total
}

// Warnings returns budget warnings accumulated since the last Reset.
func (m *Manager) Warnings() []string { return m.warnings }

// Add accepts a chunk into its category, compressing it level by level
// until it fits the category's remaining allowance. If nothing fits:
// required categories accept the count-only floor anyway and record a
// warning (required content is never silently dropped); others reject
// with ChunkTooLargeError.
func (m *Manager) Add(c *Chunk) error {
	cfg, ok := m.configs[c.Category]
	if !ok {
		return fmt.Errorf("unknown category %q", c.Category)
	}

	remaining := m.alloc[c.Category] - m.used[c.Category]
	if c.Tokens <= remaining {
		m.accept(c)
		return nil
	}

	if c.Compressible {
		for level := c.Level + 1; level <= LevelCountOnly; level++ {
			candidate := c.Compress(level)
			if candidate.Tokens <= remaining {
				m.accept(candidate)
				return nil
			}
			c = candidate
		}
	}

	if cfg.Required {
		// Keep whatever we ended up with (count-only for compressible
		// chunks, the raw content otherwise) and surface the overrun.
		m.accept(c)
		m.warnings = append(m.warnings, fmt.Sprintf(
			"required category %q exceeds its allocation: %d used, %d allocated",
			c.Category, m.used[c.Category], m.alloc[c.Category]))
		return nil
	}

	return &ChunkTooLargeError{Category: c.Category, Tokens: c.Tokens, Allowed: remaining}
}

func (m *Manager) accept(c *Chunk) {
	m.chunks[c.Category] = append(m.chunks[c.Category], c)
	m.used[c.Category] += c.Tokens
}

// Rebalance brings total usage back within the ceiling by compressing
// chunks in non-required categories, lowest priority first, one level at
// a time. Ties on priority break by registration order. Required
// categories are never forced below content that Add already accepted.
// Returns the number of tokens freed.
func (m *Manager) Rebalance() int {
	freed := 0
	for m.TotalUsed() > m.total {
		progressed := false
		for _, name := range m.categoriesByAscendingPriority() {
			if m.configs[name].Required {
				continue
			}
			for i, c := range m.chunks[name] {
				if !c.Compressible || c.Level >= LevelCountOnly {
					continue
				}
				next := c.Compress(c.Level + 1)
				m.used[name] += next.Tokens - c.Tokens
				freed += c.Tokens - next.Tokens
				m.chunks[name][i] = next
				progressed = true
				if m.TotalUsed() <= m.total {
					return freed
				}
			}
		}
		if !progressed {
			break
		}
	}
	return freed
}

// categoriesByAscendingPriority returns category names lowest priority
// first, preserving registration order among equals.
func (m *Manager) categoriesByAscendingPriority() []string {
	names := make([]string, len(m.order))
	copy(names, m.order)
	// Insertion sort keeps the registration-order tie-break stable.
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && m.configs[names[j]].Priority < m.configs[names[j-1]].Priority; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
	return names
}

// Render composes all accepted chunks into one context block, categories
// in registration order, chunks within a category by descending priority
// then insertion order.
func (m *Manager) Render() string {
	return m.RenderExcept()
}

// RenderExcept renders like Render but skips the named categories. The
// skipped categories still count toward usage; callers use this when a
// category travels on a separate channel, such as the system prompt.
func (m *Manager) RenderExcept(exclude ...string) string {
	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[name] = true
	}
	var b strings.Builder
	for _, name := range m.order {
		if skip[name] {
			continue
		}
		chunks := m.chunks[name]
		if len(chunks) == 0 {
			continue
		}
		ordered := make([]*Chunk, len(chunks))
		copy(ordered, chunks)
		for i := 1; i < len(ordered); i++ {
			for j := i; j > 0 && ordered[j].Priority > ordered[j-1].Priority; j-- {
				ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
			}
		}
		for _, c := range ordered {
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(c.Content)
		}
	}
	return b.String()
}

// Reset clears all chunks, usage, and warnings so the manager can be
// refilled for the next iteration. Allocations are untouched.
func (m *Manager) Reset() {
	for _, name := range m.order {
		m.chunks[name] = nil
		m.used[name] = 0
	}
	m.warnings = nil
}

// Usage returns a copy of per-category consumption, used for
// checkpointing.
func (m *Manager) Usage() map[string]int {
	out := make(map[string]int, len(m.used))
	for k, v := range m.used {
		out[k] = v
	}
	return out
}

// RestoreUsage overwrites per-category consumption from a checkpoint.
// Chunk content is not restored; the next iteration rebuilds it.
func (m *Manager) RestoreUsage(usage map[string]int) {
	for _, name := range m.order {
		m.used[name] = usage[name]
	}
}
