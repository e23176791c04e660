// Package watch keeps a folder and the document index in step: new and
// changed files are queued for ingest, removed files are deleted.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/docrag/pkg/extract"
	"github.com/papercomputeco/docrag/pkg/ingest"
	"github.com/papercomputeco/docrag/pkg/logger"
)

const defaultDebounce = 500 * time.Millisecond

// Enqueuer accepts ingest jobs without blocking.
type Enqueuer interface {
	Enqueue(job ingest.Job) bool
}

// Deleter removes a document by ID.
type Deleter interface {
	Delete(ctx context.Context, id string) error
}

// Config holds configuration for a Watcher.
type Config struct {
	// Dir is watched recursively. Hidden entries are ignored.
	Dir string

	// Queue receives a job for every created or changed file.
	Queue Enqueuer

	// Documents deletes the documents of removed files.
	Documents Deleter

	// Debounce coalesces bursts of events per file. Defaults to 500ms.
	Debounce time.Duration

	// InitialScan queues every existing file when Run starts.
	InitialScan bool

	// Known seeds the file to document mapping from a previous run.
	Known map[string]string

	Logger *slog.Logger
}

// Watcher turns filesystem events under a directory into ingest jobs.
type Watcher struct {
	config Config
	logger *slog.Logger

	mu     sync.Mutex
	docs   map[string]string
	timers map[string]*time.Timer
	ready  chan string
	done   chan struct{}
}

// New creates a Watcher. Run starts it.
func New(c Config) (*Watcher, error) {
	if c.Dir == "" {
		return nil, errors.New("watch directory is required")
	}
	if c.Queue == nil || c.Documents == nil {
		return nil, errors.New("watch requires a queue and a document service")
	}
	if c.Debounce <= 0 {
		c.Debounce = defaultDebounce
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	info, err := os.Stat(c.Dir)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", c.Dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", c.Dir)
	}

	docs := make(map[string]string, len(c.Known))
	for path, id := range c.Known {
		docs[filepath.Clean(path)] = id
	}

	return &Watcher{
		config: c,
		logger: c.Logger,
		docs:   docs,
		timers: make(map[string]*time.Timer),
		ready:  make(chan string, 64),
		done:   make(chan struct{}),
	}, nil
}

// Track records the document created for a file so later changes replace
// it. Wire it to the ingest pool's OnResult.
func (w *Watcher) Track(res ingest.Result) {
	if res.Err != nil || res.Document == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.docs[filepath.Clean(res.Job.Path)] = res.Document.ID
}

// DocumentID returns the tracked document for path.
func (w *Watcher) DocumentID(path string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id, ok := w.docs[filepath.Clean(path)]
	return id, ok
}

// Snapshot copies the current file to document mapping.
func (w *Watcher) Snapshot() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return maps.Clone(w.docs)
}

// Run watches until ctx is done. A Watcher runs at most once.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.done)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := w.addTree(watcher, w.config.Dir, w.config.InitialScan); err != nil {
		return err
	}

	w.logger.Info("watching for documents", "dir", w.config.Dir)

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, watcher, event)
		case path := <-w.ready:
			w.enqueue(path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if ingest.Hidden(path) {
		return
	}

	switch {
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			if event.Has(fsnotify.Create) {
				if err := w.addTree(watcher, path, true); err != nil {
					w.logger.Warn("failed to watch new directory", "dir", path, "error", err)
				}
			}
			return
		}
		if extract.Supported(path) {
			w.debounce(path)
		}
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		w.remove(ctx, path)
	}
}

// addTree watches dir and its visible subdirectories, optionally queueing
// the supported files found.
func (w *Watcher) addTree(watcher *fsnotify.Watcher, dir string, queue bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && ingest.Hidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				return fmt.Errorf("watching %s: %w", path, err)
			}
			return nil
		}
		if queue && d.Type().IsRegular() && extract.Supported(path) {
			w.debounce(path)
		}
		return nil
	})
}

func (w *Watcher) debounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Reset(w.config.Debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.config.Debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.deliver(path)
	})
}

// deliver hands a settled path to Run. It gives up once Run has returned.
func (w *Watcher) deliver(path string) bool {
	select {
	case <-w.done:
		return false
	default:
	}
	select {
	case w.ready <- path:
		return true
	case <-w.done:
		return false
	}
}

func (w *Watcher) enqueue(path string) {
	job := ingest.Job{Path: path}
	if id, ok := w.DocumentID(path); ok {
		job.Replaces = id
	}
	if !w.config.Queue.Enqueue(job) {
		w.logger.Warn("dropped changed file, ingest queue full", "path", path)
	}
}

func (w *Watcher) remove(ctx context.Context, path string) {
	w.mu.Lock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}
	id, ok := w.docs[path]
	delete(w.docs, path)
	w.mu.Unlock()

	if !ok {
		return
	}
	if err := w.config.Documents.Delete(ctx, id); err != nil {
		w.logger.Warn("failed to delete document of removed file",
			"path", path,
			"document_id", id,
			"error", err,
		)
		return
	}
	w.logger.Info("removed document of deleted file", "path", path, "document_id", id)
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}
