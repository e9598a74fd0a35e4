package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Stylesheet serves the dashboard's CSS from disk and hot-reloads it when
// the file changes. The content is opaque: it is never parsed, only cached
// and served.
type Stylesheet struct {
	path   string
	logger *zap.Logger

	mu      sync.RWMutex
	content []byte
}

// NewStylesheet loads the file once up front. A missing file is an error;
// the caller decides whether to fall back.
func NewStylesheet(path string, logger *zap.Logger) (*Stylesheet, error) {
	s := &Stylesheet{path: path, logger: logger}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Content returns the current stylesheet bytes
func (s *Stylesheet) Content() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.content
}

// Watch re-reads the file on change events until ctx is cancelled. Editors
// often replace rather than write in place, so the parent directory is
// watched and events are filtered by name.
func (s *Stylesheet) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create stylesheet watcher: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		target := filepath.Clean(s.path)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := s.reload(); err != nil {
					s.logger.Warn("stylesheet reload failed", zap.Error(err))
					continue
				}
				s.logger.Info("stylesheet reloaded", zap.String("path", s.path))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("stylesheet watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

func (s *Stylesheet) reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read stylesheet: %w", err)
	}

	s.mu.Lock()
	s.content = data
	s.mu.Unlock()
	return nil
}
