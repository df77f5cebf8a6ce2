package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/anvil-agent/anvil/internal/budget"
)

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadProfile(t *testing.T) {
	path := writeProfile(t, `
model: claude-sonnet-4-20250514
max_iterations: 40
error_ceiling: 5
provider_timeout: 90s
awareness_ttl: 2m
budget:
  - name: system
    percent: 10
    priority: 100
    required: true
  - name: history
    percent: 60
    priority: 40
`)

	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}

	cfg := p.EngineConfig()
	if cfg.Model != "claude-sonnet-4-20250514" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.MaxIterations != 40 || cfg.ErrorCeiling != 5 {
		t.Errorf("iterations/ceiling = %d/%d", cfg.MaxIterations, cfg.ErrorCeiling)
	}
	if cfg.ProviderTimeout != 90*time.Second {
		t.Errorf("ProviderTimeout = %v", cfg.ProviderTimeout)
	}
	if cfg.AwarenessTTL != 2*time.Minute {
		t.Errorf("AwarenessTTL = %v", cfg.AwarenessTTL)
	}
	if len(cfg.Categories) != 2 {
		t.Fatalf("Categories = %v", cfg.Categories)
	}
	want := budget.CategoryConfig{Name: "system", Percent: 10, Priority: 100, Required: true}
	if cfg.Categories[0] != want {
		t.Errorf("category[0] = %+v", cfg.Categories[0])
	}
}

func TestLoadProfileZeroValuesStayZero(t *testing.T) {
	p, err := LoadProfile(writeProfile(t, "model: gpt-4o-mini\n"))
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	cfg := p.EngineConfig()
	if cfg.MaxIterations != 0 || cfg.ContextTokens != 0 || len(cfg.Categories) != 0 {
		t.Errorf("unset fields must stay zero for the engine defaults to apply: %+v", cfg)
	}
}

func TestLoadProfileRejectsBadBudget(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "over 100 percent",
			yaml: "budget:\n  - {name: a, percent: 70}\n  - {name: b, percent: 40}\n",
			want: "exceed 100",
		},
		{
			name: "duplicate category",
			yaml: "budget:\n  - {name: a, percent: 10}\n  - {name: a, percent: 10}\n",
			want: "listed twice",
		},
		{
			name: "zero percent",
			yaml: "budget:\n  - {name: a, percent: 0}\n",
			want: "positive percent",
		},
		{
			name: "bad duration",
			yaml: "provider_timeout: soon\n",
			want: "invalid duration",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadProfile(writeProfile(t, tc.yaml))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %v, want substring %q", err, tc.want)
			}
		})
	}
}

func TestManagerRoundtrip(t *testing.T) {
	m := &Manager{configDir: t.TempDir()}

	if m.Exists() {
		t.Fatal("config should not exist yet")
	}
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load before save: %v", err)
	}
	if *cfg != (Config{}) {
		t.Errorf("missing file should load as empty config, got %+v", cfg)
	}

	saved := &Config{LLMProvider: "anthropic", Model: "claude-sonnet-4-20250514", Profile: "deep"}
	if err := m.Save(saved); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !m.Exists() {
		t.Error("Exists should report true after save")
	}

	info, err := os.Stat(m.GetConfigPath())
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config perms = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *loaded != *saved {
		t.Errorf("roundtrip mismatch: %+v != %+v", loaded, saved)
	}
}
