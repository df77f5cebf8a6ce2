package engine

import (
	"strings"
	"time"

	"github.com/anvil-agent/anvil/internal/budget"
)

// Config holds all loop configuration.
type Config struct {
	Model           string
	MaxIterations   int
	ErrorCeiling    int // consecutive errors beyond this are fatal
	LoopThreshold   int // repeated-failure count that triggers a correction
	RecentWindow    int // tool result age (iterations) kept at full detail
	ArchiveWindow   int // tool result age beyond which detail is evicted
	ContextTokens   int // total token ceiling for assembled context
	MaxOutputTokens int
	Temperature     float32
	ActionTimeout   time.Duration // per action call
	ProviderTimeout time.Duration // per provider call
	AwarenessTTL    time.Duration // 0 disables TTL-based refresh
	CheckpointEvery int           // iterations between checkpoints, 0 disables
	Retry           RetryPolicy
	Categories      []budget.CategoryConfig
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		MaxIterations:   25,
		ErrorCeiling:    3,
		LoopThreshold:   2,
		RecentWindow:    1,
		ArchiveWindow:   5,
		ContextTokens:   16000,
		MaxOutputTokens: 4096,
		Temperature:     0.1,
		ActionTimeout:   60 * time.Second,
		ProviderTimeout: 120 * time.Second,
		CheckpointEvery: 0,
		Retry:           DefaultRetryPolicy(),
		Categories:      DefaultCategories(),
	}
}

// DefaultCategories is the reference budget split. Corrections run at
// critical priority, ahead of ordinary history; system and corrections
// are required and never evicted.
func DefaultCategories() []budget.CategoryConfig {
	return []budget.CategoryConfig{
		{Name: budget.CategorySystem, Percent: 15, Priority: 100, Required: true},
		{Name: budget.CategoryAwareness, Percent: 20, Priority: 60},
		{Name: budget.CategoryTasks, Percent: 10, Priority: 70},
		{Name: budget.CategoryCorrections, Percent: 5, Priority: 90, Required: true},
		{Name: budget.CategoryHistory, Percent: 50, Priority: 40},
	}
}

// ContextTokensForModel returns a context ceiling suited to the model's
// window, leaving headroom for output.
func ContextTokensForModel(model string) int {
	modelLower := strings.ToLower(model)

	switch {
	// Claude family (200k context).
	case strings.Contains(modelLower, "claude") || strings.Contains(modelLower, "sonnet") || strings.Contains(modelLower, "opus"):
		return 150000

	// GPT-4o (128k context).
	case strings.Contains(modelLower, "gpt-4o"):
		return 100000

	// Kimi K2 (200k context).
	case strings.Contains(modelLower, "kimi"):
		return 150000

	// DeepSeek (64k safe assumption).
	case strings.Contains(modelLower, "deepseek"):
		return 50000
	}

	return 16000
}

// withDefaults fills zero values so a partially specified Config still
// runs.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.ErrorCeiling <= 0 {
		c.ErrorCeiling = d.ErrorCeiling
	}
	if c.LoopThreshold <= 0 {
		c.LoopThreshold = d.LoopThreshold
	}
	if c.RecentWindow <= 0 {
		c.RecentWindow = d.RecentWindow
	}
	if c.ArchiveWindow <= 0 {
		c.ArchiveWindow = d.ArchiveWindow
	}
	if c.ContextTokens <= 0 {
		if c.Model != "" {
			c.ContextTokens = ContextTokensForModel(c.Model)
		} else {
			c.ContextTokens = d.ContextTokens
		}
	}
	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = d.MaxOutputTokens
	}
	if c.ActionTimeout <= 0 {
		c.ActionTimeout = d.ActionTimeout
	}
	if c.ProviderTimeout <= 0 {
		c.ProviderTimeout = d.ProviderTimeout
	}
	if c.Retry == (RetryPolicy{}) {
		c.Retry = d.Retry
	}
	if len(c.Categories) == 0 {
		c.Categories = d.Categories
	}
	return c
}
