// Package prompts holds the versioned system prompts the loop runs on.
// Prompts are registered at init time and resolved through a registry so
// callers can pin a version or take the latest.
package prompts

import (
	"fmt"
	"sync"
)

// Version identifies a prompt revision.
type Version string

const V1 Version = "1.0.0"

// Prompt is one versioned prompt with metadata.
type Prompt struct {
	ID          string
	Version     Version
	Content     string
	Description string
	Deprecated  bool
}

// Registry resolves prompts by ID and version.
type Registry struct {
	mu      sync.RWMutex
	prompts map[string]map[Version]*Prompt
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry that init-time
// registration targets.
func DefaultRegistry() *Registry { return defaultRegistry }

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{prompts: make(map[string]map[Version]*Prompt)}
}

// Register adds a prompt. Re-registering the same ID and version
// replaces the previous entry.
func (r *Registry) Register(p *Prompt) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.prompts[p.ID] == nil {
		r.prompts[p.ID] = make(map[Version]*Prompt)
	}
	r.prompts[p.ID][p.Version] = p
}

// Get retrieves a specific prompt version.
func (r *Registry) Get(id string, version Version) (*Prompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	versions, ok := r.prompts[id]
	if !ok {
		return nil, fmt.Errorf("prompt not found: %s", id)
	}
	p, ok := versions[version]
	if !ok {
		return nil, fmt.Errorf("prompt %s version %s not found", id, version)
	}
	return p, nil
}

// GetLatest returns the highest non-deprecated version of a prompt, or
// the highest version outright when all are deprecated.
func (r *Registry) GetLatest(id string) (*Prompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	versions, ok := r.prompts[id]
	if !ok {
		return nil, fmt.Errorf("prompt not found: %s", id)
	}
	var latest, fallback *Prompt
	for _, p := range versions {
		if fallback == nil || p.Version > fallback.Version {
			fallback = p
		}
		if p.Deprecated {
			continue
		}
		if latest == nil || p.Version > latest.Version {
			latest = p
		}
	}
	if latest == nil {
		latest = fallback
	}
	return latest, nil
}

// System returns the operator prompt the loop uses. Falls back to the
// registered content; the registry is always populated at init.
func System() string {
	p, err := defaultRegistry.GetLatest("operator")
	if err != nil {
		return ""
	}
	return p.Content
}
