package knowledge

import (
	"context"
	"log"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 500 * time.Millisecond

// RegistryHolder publishes the current registry snapshot to concurrent readers.
// A request takes one snapshot and keeps it for the whole filtering call.
type RegistryHolder struct {
	current atomic.Pointer[Registry]
}

// NewRegistryHolder creates a holder seeded with reg
func NewRegistryHolder(reg *Registry) *RegistryHolder {
	h := &RegistryHolder{}
	h.current.Store(reg)
	return h
}

// Snapshot returns the registry in effect right now
func (h *RegistryHolder) Snapshot() *Registry {
	return h.current.Load()
}

// Swap replaces the registry for subsequent requests
func (h *RegistryHolder) Swap(reg *Registry) {
	h.current.Store(reg)
}

// Watch reloads the registry whenever the customers file changes, until ctx is done.
// A file that fails to parse leaves the previous registry in place.
func (h *RegistryHolder) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return err
	}

	// Watching the directory survives editors that replace the file
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return err
	}
	filename := filepath.Base(absPath)

	log.Printf("👁️  Watching %s for customer registry changes", path)

	go func() {
		defer watcher.Close()

		var debounce *time.Timer
		for {
			select {
			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != filename {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(reloadDebounce, func() {
					reg, err := LoadRegistry(absPath)
					if err != nil {
						log.Printf("❌ [REGISTRY] Reload of %s failed, keeping previous registry: %v", path, err)
						return
					}
					h.Swap(reg)
					log.Printf("✅ [REGISTRY] Reloaded %d customers from %s", reg.Len(), path)
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("⚠️  [REGISTRY] File watcher error: %v", err)
			}
		}
	}()

	return nil
}
