package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"folio/internal/domain"
)

// importDebounce coalesces the burst of write events an editor produces
// when saving a file.
const importDebounce = 500 * time.Millisecond

// ImportWatcher upserts storage documents dropped as *.json files into a
// directory.
type ImportWatcher struct {
	posts   *PostService
	dir     string
	emitter EventEmitter
	logger  *log.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}

	// pending counts debounce callbacks that are scheduled or running.
	pending sync.WaitGroup
}

// NewImportWatcher creates a watcher over dir.
func NewImportWatcher(posts *PostService, dir string, emitter EventEmitter, logger *log.Logger) *ImportWatcher {
	if logger == nil {
		logger = log.Default()
	}
	if emitter == nil {
		emitter = LogEmitter{Logger: logger}
	}
	return &ImportWatcher{posts: posts, dir: dir, emitter: emitter, logger: logger.WithPrefix("import")}
}

// ImportFile reads one document file and upserts it by slug.
func (w *ImportWatcher) ImportFile(ctx context.Context, path string) (*domain.StudyNote, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("import %s: %w: %v", path, domain.ErrInvalidDocument, err)
	}
	note, err := w.posts.Upsert(ctx, &doc)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	w.logger.Info("imported", "file", filepath.Base(path), "post", note.ID, "slug", note.Slug)
	w.emitter.Emit(ctx, EventPostImported, note.ID)
	return note, nil
}

// ImportDir imports every *.json file already in the directory. Bad files
// are logged and skipped; the count of successful imports is returned.
func (w *ImportWatcher) ImportDir(ctx context.Context) (int, error) {
	matches, err := filepath.Glob(filepath.Join(w.dir, "*.json"))
	if err != nil {
		return 0, fmt.Errorf("import dir: %w", err)
	}
	n := 0
	for _, m := range matches {
		if _, err := w.ImportFile(ctx, m); err != nil {
			w.logger.Warn("skipping file", "file", m, "err", err)
			continue
		}
		n++
	}
	return n, nil
}

// Start begins watching the directory. Files written or created while
// running are imported after a short debounce.
func (w *ImportWatcher) Start(ctx context.Context) error {
	w.Stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("import watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("import watcher: watch %q: %w", w.dir, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	w.mu.Lock()
	w.watcher = watcher
	w.cancel = cancel
	w.done = done
	w.mu.Unlock()

	go w.loop(watchCtx, watcher, done)
	w.logger.Info("watching", "dir", w.dir)
	return nil
}

func (w *ImportWatcher) loop(ctx context.Context, watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			if t.Stop() {
				w.pending.Done()
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".json") {
				continue
			}
			path := event.Name
			if t, exists := timers[path]; exists && t.Stop() {
				w.pending.Done()
			}
			w.pending.Add(1)
			timers[path] = time.AfterFunc(importDebounce, func() {
				defer w.pending.Done()
				if ctx.Err() != nil {
					return
				}
				if _, err := w.ImportFile(ctx, path); err != nil {
					w.logger.Warn("import failed", "file", path, "err", err)
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "err", err)
		}
	}
}

// Stop tears the watcher down and waits for imports already under way.
func (w *ImportWatcher) Stop() {
	w.mu.Lock()
	cancel, watcher, done := w.cancel, w.watcher, w.done
	w.cancel, w.watcher, w.done = nil, nil, nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if watcher != nil {
		watcher.Close()
	}
	if done != nil {
		<-done
	}
	w.pending.Wait()
}
