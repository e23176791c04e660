// Package ingest provides an asynchronous worker pool that reads files from
// disk and uploads them as documents, and helpers to collect the files to
// ingest.
//
// The pool decouples slow extraction and embedding from the caller, so a
// folder watch or a bulk ingest never blocks on a single large document.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/papercomputeco/docrag/pkg/logger"
	"github.com/papercomputeco/docrag/pkg/storage"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("ingest pool is closed")

// Documents is the document service the pool uploads into.
type Documents interface {
	Upload(ctx context.Context, filename string, data []byte) (*storage.Document, error)
	Delete(ctx context.Context, id string) error
}

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	// Path of the file to ingest.
	Path string

	// Replaces is the ID of a document this file supersedes. It is deleted
	// before the upload.
	Replaces string
}

// Result is the outcome of a Job.
type Result struct {
	Job      Job
	Document *storage.Document
	Err      error
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Documents receives the uploads.
	Documents Documents

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// OnResult, when set, is called from the worker goroutine after every job.
	OnResult func(Result)

	// Logger is the provided slog logger
	Logger *slog.Logger
}

// Pool processes ingest jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Documents == nil {
		return nil, errors.New("ingest pool requires a document service")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is
// closed, resulting in the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Error("job not queued, pool closed", "path", job.Path)
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued", "path", job.Path)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped", "path", job.Path)
		return false
	}
}

// Submit queues a job, waiting for queue capacity until ctx is done.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued", "path", job.Path)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		res := p.processJob(job)
		if p.config.OnResult != nil {
			p.config.OnResult(res)
		}
	}

	p.logger.Debug("ingest worker stopped", "worker_id", id)
}

// processJob reads the job's file and uploads it, removing the superseded
// document first.
func (p *Pool) processJob(job Job) Result {
	ctx := context.Background()
	res := Result{Job: job}

	data, err := os.ReadFile(job.Path)
	if err != nil {
		res.Err = fmt.Errorf("reading %s: %w", job.Path, err)
		p.logger.Error("ingest failed", "path", job.Path, "error", res.Err)
		return res
	}

	if job.Replaces != "" {
		err := p.config.Documents.Delete(ctx, job.Replaces)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			res.Err = fmt.Errorf("removing previous version of %s: %w", job.Path, err)
			p.logger.Error("ingest failed", "path", job.Path, "error", res.Err)
			return res
		}
	}

	doc, err := p.config.Documents.Upload(ctx, filepath.Base(job.Path), data)
	if err != nil {
		res.Err = err
		p.logger.Error("ingest failed", "path", job.Path, "error", err)
		return res
	}

	res.Document = doc
	p.logger.Info("document ingested",
		"path", job.Path,
		"document_id", doc.ID,
		"status", doc.Status,
		"chunks", doc.ChunkCount,
	)
	return res
}
