package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/anvil-agent/anvil/internal/budget"
	"github.com/anvil-agent/anvil/internal/engine"
)

// Profile is a declarative run configuration, loaded from YAML. Zero
// values fall through to the engine defaults, so a profile only needs
// to name what it changes.
type Profile struct {
	Model           string        `yaml:"model"`
	MaxIterations   int           `yaml:"max_iterations"`
	ErrorCeiling    int           `yaml:"error_ceiling"`
	LoopThreshold   int           `yaml:"loop_threshold"`
	RecentWindow    int           `yaml:"recent_window"`
	ArchiveWindow   int           `yaml:"archive_window"`
	ContextTokens   int           `yaml:"context_tokens"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	Temperature     float32  `yaml:"temperature"`
	ActionTimeout   Duration `yaml:"action_timeout"`
	ProviderTimeout Duration `yaml:"provider_timeout"`
	AwarenessTTL    Duration `yaml:"awareness_ttl"`
	CheckpointEvery int      `yaml:"checkpoint_every"`

	Budget []BudgetCategory `yaml:"budget"`
}

// Duration parses YAML scalars like "90s" or "2m" via
// time.ParseDuration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// BudgetCategory is one context category's share of the token ceiling.
type BudgetCategory struct {
	Name     string `yaml:"name"`
	Percent  int    `yaml:"percent"`
	Priority int    `yaml:"priority"`
	Required bool   `yaml:"required"`
}

// LoadProfile reads a YAML profile from path.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile yaml: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Profile) validate() error {
	if len(p.Budget) == 0 {
		return nil
	}
	total := 0
	seen := map[string]bool{}
	for _, c := range p.Budget {
		if c.Name == "" {
			return fmt.Errorf("budget category without a name")
		}
		if seen[c.Name] {
			return fmt.Errorf("budget category %q listed twice", c.Name)
		}
		seen[c.Name] = true
		if c.Percent <= 0 {
			return fmt.Errorf("budget category %q needs a positive percent", c.Name)
		}
		total += c.Percent
	}
	if total > 100 {
		return fmt.Errorf("budget percentages sum to %d, must not exceed 100", total)
	}
	return nil
}

// EngineConfig converts the profile into a loop configuration.
func (p *Profile) EngineConfig() engine.Config {
	cfg := engine.Config{
		Model:           p.Model,
		MaxIterations:   p.MaxIterations,
		ErrorCeiling:    p.ErrorCeiling,
		LoopThreshold:   p.LoopThreshold,
		RecentWindow:    p.RecentWindow,
		ArchiveWindow:   p.ArchiveWindow,
		ContextTokens:   p.ContextTokens,
		MaxOutputTokens: p.MaxOutputTokens,
		Temperature:     p.Temperature,
		ActionTimeout:   time.Duration(p.ActionTimeout),
		ProviderTimeout: time.Duration(p.ProviderTimeout),
		AwarenessTTL:    time.Duration(p.AwarenessTTL),
		CheckpointEvery: p.CheckpointEvery,
	}
	for _, c := range p.Budget {
		cfg.Categories = append(cfg.Categories, budget.CategoryConfig{
			Name:     c.Name,
			Percent:  c.Percent,
			Priority: c.Priority,
			Required: c.Required,
		})
	}
	return cfg
}
