package awareness

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates the awareness cache when the watched domain root
// changes outside the loop's own actions. Events are debounced so a
// burst of writes costs one invalidation, not one per file.
type Watcher struct {
	root         string
	cache        *Cache
	watcher      *fsnotify.Watcher
	debounceTime time.Duration
	ignore       interface{ MatchesPath(string) bool }

	mu      sync.Mutex
	pending bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a filesystem watcher rooted at root. ignore may be
// nil; when set, matching paths never trigger invalidation.
func NewWatcher(root string, cache *Cache, ignore interface{ MatchesPath(string) bool }) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		root:         root,
		cache:        cache,
		watcher:      fsw,
		debounceTime: 500 * time.Millisecond,
		ignore:       ignore,
		ctx:          ctx,
		cancel:       cancel,
	}, nil
}

// Start walks the root to register directories, then begins processing
// events in the background.
func (w *Watcher) Start() error {
	err := filepath.WalkDir(w.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // continue walking
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return nil
		}
		if w.ignore != nil && rel != "." && w.ignore.MatchesPath(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				log.Printf("WARNING: failed to watch %s: %v", path, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk root: %w", err)
	}

	w.wg.Add(2)
	go w.eventLoop()
	go w.debounceLoop()
	return nil
}

// Stop stops the watcher and waits for its goroutines.
func (w *Watcher) Stop() error {
	w.cancel()
	w.wg.Wait()
	return w.watcher.Close()
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("WARNING: watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}
	if w.ignore != nil && w.ignore.MatchesPath(rel) {
		return
	}

	// New directories need watching too.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(event.Name); err != nil {
				log.Printf("WARNING: failed to watch new directory %s: %v", event.Name, err)
			}
			// Directory creation still changes domain structure.
		}
	}

	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.mu.Lock()
		w.pending = true
		w.mu.Unlock()
	}
}

func (w *Watcher) debounceLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.debounceTime)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.mu.Lock()
			fire := w.pending
			w.pending = false
			w.mu.Unlock()
			if fire {
				w.cache.Invalidate()
			}
		}
	}
}
