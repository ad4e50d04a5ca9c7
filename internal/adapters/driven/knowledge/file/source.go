// Package file loads knowledge base documents from a directory of text
// files and can watch that directory for changes.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
	"github.com/smartmarket-labs/retrieval-engine/internal/core/ports/driven"
	"github.com/smartmarket-labs/retrieval-engine/internal/logger"
)

// Ensure Source implements both knowledge interfaces.
var (
	_ driven.KnowledgeSource  = (*Source)(nil)
	_ driven.KnowledgeWatcher = (*Source)(nil)
)

// debounceWindow coalesces the event bursts editors produce on save.
const debounceWindow = 500 * time.Millisecond

// Extensions of files treated as knowledge documents.
var knowledgeExtensions = map[string]bool{
	".md":  true,
	".txt": true,
}

// Source reads every markdown and plain-text file under a directory.
type Source struct {
	dir string
}

// NewSource creates a source over dir. The directory must exist.
func NewSource(dir string) (*Source, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("knowledge dir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("knowledge dir %s: not a directory", dir)
	}
	return &Source{dir: dir}, nil
}

// Load reads every knowledge document under the directory, sorted by
// path for stable ingestion order. Subdirectories are included.
func (s *Source) Load(_ context.Context) ([]domain.KnowledgeDocument, error) {
	var paths []string
	err := filepath.WalkDir(s.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !knowledgeExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan knowledge dir: %w", err)
	}
	sort.Strings(paths)

	docs := make([]domain.KnowledgeDocument, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read knowledge file %s: %w", path, err)
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat knowledge file %s: %w", path, err)
		}
		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		docs = append(docs, domain.KnowledgeDocument{
			ID:        rel,
			Content:   string(data),
			Metadata:  map[string]string{"source": rel},
			CreatedAt: info.ModTime(),
		})
	}
	logger.Debug("loaded %d knowledge documents from %s", len(docs), s.dir)
	return docs, nil
}

// Watch invokes onChange whenever a knowledge file is created, written,
// renamed or removed, debounced so one save triggers one callback. It
// returns after starting the background watcher; the watcher stops when
// ctx is cancelled.
func (s *Source) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("knowledge watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("knowledge watcher: %w", err)
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		fire := make(chan struct{}, 1)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !knowledgeExtensions[strings.ToLower(filepath.Ext(event.Name))] {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				logger.Debug("knowledge change: %s %s", event.Op, event.Name)
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounceWindow, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			case <-fire:
				onChange()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("knowledge watcher: %v", err)
			}
		}
	}()
	return nil
}
