package budget

import "fmt"

// Level is the compression level of a context chunk. Levels are strictly
// ordered: a chunk only ever moves toward higher compression, never back.
type Level int

const (
	LevelFull Level = iota
	LevelSummary
	LevelMinimal
	LevelCountOnly
)

func (l Level) String() string {
	switch l {
	case LevelFull:
		return "full"
	case LevelSummary:
		return "summary"
	case LevelMinimal:
		return "minimal"
	case LevelCountOnly:
		return "count-only"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Chunk is one unit of injectable context text.
type Chunk struct {
	Category     string
	Content      string
	Tokens       int
	Level        Level
	Compressible bool
	Priority     int // ordering within a category, higher first

	// originalTokens is the token size at LevelFull, preserved so the
	// count-only placeholder can report what was compressed away.
	originalTokens int
}

// NewChunk creates a full-detail compressible chunk with an estimated
// token count.
func NewChunk(category, content string) *Chunk {
	tokens := Estimate(content)
	return &Chunk{
		Category:       category,
		Content:        content,
		Tokens:         tokens,
		Level:          LevelFull,
		Compressible:   true,
		originalTokens: tokens,
	}
}

// NewFixedChunk creates a non-compressible chunk. Used for content that
// must survive verbatim or be rejected outright.
func NewFixedChunk(category, content string) *Chunk {
	c := NewChunk(category, content)
	c.Compressible = false
	return c
}

// OriginalTokens reports the chunk's token size before any compression.
func (c *Chunk) OriginalTokens() int { return c.originalTokens }

// Compress returns the chunk reduced to the target level. Compression is
// monotonic: a target at or below the current level is a no-op returning
// the same instance. Non-compressible chunks are never altered.
func (c *Chunk) Compress(target Level) *Chunk {
	if target <= c.Level || !c.Compressible {
		return c
	}

	content := compressContent(c.Category, c.Content, target, c.originalTokens)
	return &Chunk{
		Category:       c.Category,
		Content:        content,
		Tokens:         Estimate(content),
		Level:          target,
		Compressible:   c.Compressible,
		Priority:       c.Priority,
		originalTokens: c.originalTokens,
	}
}
