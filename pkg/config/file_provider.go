package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileProvider serves pipeline specs from a local file and republishes a
// fresh snapshot whenever the file changes on disk.
type FileProvider struct {
	path        string
	mu          sync.RWMutex
	spec        *Spec
	subscribers []chan *Spec
	watcher     *fsnotify.Watcher
	cancel      context.CancelFunc
}

// NewFileProvider creates a provider watching the specified file. The
// initial load must succeed; later reload failures keep the last good spec.
func NewFileProvider(path string) (*FileProvider, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve absolute path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &FileProvider{
		path:    absPath,
		watcher: watcher,
		cancel:  cancel,
	}

	if err := p.load(); err != nil {
		cancel()
		_ = watcher.Close()
		return nil, err
	}

	// Watch the directory, not the file: editors replace files on save.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		cancel()
		_ = watcher.Close()
		return nil, fmt.Errorf("config: watch directory: %w", err)
	}

	go p.watchLoop(ctx)

	return p, nil
}

// Current returns the latest successfully parsed spec.
func (p *FileProvider) Current() *Spec {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.spec
}

// Subscribe returns a channel receiving spec updates, primed with the
// current snapshot. Slow consumers miss intermediate snapshots.
func (p *FileProvider) Subscribe() <-chan *Spec {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan *Spec, 1)
	p.subscribers = append(p.subscribers, ch)
	ch <- p.spec
	return ch
}

// Close stops the watcher and cleans up resources.
func (p *FileProvider) Close() error {
	p.cancel()
	return p.watcher.Close()
}

func (p *FileProvider) watchLoop(ctx context.Context) {
	var debounceTimer *time.Timer
	debounceDuration := 100 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) != p.path {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Chmod) {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					if err := p.load(); err != nil {
						slog.Default().Error("spec reload failed; keeping previous snapshot",
							"path", p.path,
							"error", err,
						)
					} else {
						slog.Default().Info("spec reloaded", "path", p.path)
					}
				})
			}
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			slog.Default().Error("spec watcher error", "error", err)
		}
	}
}

func (p *FileProvider) load() error {
	spec, err := Load(p.path)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.spec = spec
	subscribers := make([]chan *Spec, len(p.subscribers))
	copy(subscribers, p.subscribers)
	p.mu.Unlock()

	for _, ch := range subscribers {
		select {
		case ch <- spec:
		default:
			// Skip if channel is full (slow consumer)
		}
	}

	return nil
}
