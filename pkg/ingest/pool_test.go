package ingest_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docrag/pkg/ingest"
	"github.com/papercomputeco/docrag/pkg/logger"
	"github.com/papercomputeco/docrag/pkg/storage"
)

type fakeDocuments struct {
	mu        sync.Mutex
	uploads   map[string]string
	deleted   []string
	uploadErr error
	block     chan struct{}
}

func newFakeDocuments() *fakeDocuments {
	return &fakeDocuments{uploads: make(map[string]string)}
}

func (f *fakeDocuments) Upload(_ context.Context, filename string, data []byte) (*storage.Document, error) {
	if f.block != nil {
		<-f.block
	}
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads[filename] = string(data)
	return &storage.Document{ID: "id-" + filename, Filename: filename, Status: storage.StatusIndexed}, nil
}

func (f *fakeDocuments) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return storage.NotFoundError{ID: id}
}

var _ = Describe("Pool", func() {
	var (
		docs    *fakeDocuments
		dir     string
		mu      sync.Mutex
		results []ingest.Result
	)

	newPool := func(workers, queue uint) *ingest.Pool {
		p, err := ingest.NewPool(&ingest.Config{
			Documents:  docs,
			NumWorkers: workers,
			QueueSize:  queue,
			OnResult: func(r ingest.Result) {
				mu.Lock()
				defer mu.Unlock()
				results = append(results, r)
			},
			Logger: logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		return p
	}

	BeforeEach(func() {
		docs = newFakeDocuments()
		dir = GinkgoT().TempDir()
		results = nil
	})

	It("requires a document service", func() {
		_, err := ingest.NewPool(&ingest.Config{Logger: logger.Nop()})
		Expect(err).To(HaveOccurred())
	})

	It("runs without a logger", func() {
		writeFile(filepath.Join(dir, "a.txt"), "alpha")

		p, err := ingest.NewPool(&ingest.Config{Documents: docs, NumWorkers: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Submit(context.Background(), ingest.Job{Path: filepath.Join(dir, "a.txt")})).To(Succeed())
		p.Close()

		Expect(docs.uploads).To(HaveKeyWithValue("a.txt", "alpha"))
	})

	It("uploads every submitted file under its base name", func() {
		writeFile(filepath.Join(dir, "a.txt"), "alpha")
		writeFile(filepath.Join(dir, "sub", "b.txt"), "beta")

		p := newPool(2, 4)
		Expect(p.Submit(context.Background(), ingest.Job{Path: filepath.Join(dir, "a.txt")})).To(Succeed())
		Expect(p.Submit(context.Background(), ingest.Job{Path: filepath.Join(dir, "sub", "b.txt")})).To(Succeed())
		p.Close()

		Expect(docs.uploads).To(Equal(map[string]string{"a.txt": "alpha", "b.txt": "beta"}))
		Expect(results).To(HaveLen(2))
		for _, r := range results {
			Expect(r.Err).NotTo(HaveOccurred())
			Expect(r.Document.Status).To(Equal(storage.StatusIndexed))
		}
	})

	It("deletes the superseded document first and tolerates it being gone", func() {
		writeFile(filepath.Join(dir, "a.txt"), "v2")

		p := newPool(1, 1)
		Expect(p.Submit(context.Background(), ingest.Job{Path: filepath.Join(dir, "a.txt"), Replaces: "old-id"})).To(Succeed())
		p.Close()

		Expect(docs.deleted).To(Equal([]string{"old-id"}))
		Expect(results[0].Err).NotTo(HaveOccurred())
	})

	It("reports unreadable files and upload errors", func() {
		writeFile(filepath.Join(dir, "a.txt"), "alpha")
		docs.uploadErr = errors.New("validation failed")

		p := newPool(1, 2)
		Expect(p.Submit(context.Background(), ingest.Job{Path: filepath.Join(dir, "missing.txt")})).To(Succeed())
		Expect(p.Submit(context.Background(), ingest.Job{Path: filepath.Join(dir, "a.txt")})).To(Succeed())
		p.Close()

		Expect(results).To(HaveLen(2))
		Expect(results[0].Err).To(MatchError(ContainSubstring("reading")))
		Expect(results[1].Err).To(MatchError("validation failed"))
	})

	It("drops jobs when the queue is full", func() {
		docs.block = make(chan struct{})
		writeFile(filepath.Join(dir, "a.txt"), "alpha")
		job := ingest.Job{Path: filepath.Join(dir, "a.txt")}

		p := newPool(1, 1)
		Expect(p.Enqueue(job)).To(BeTrue())
		// Wait for the worker to take the first job so the queue slot frees.
		Eventually(func() bool { return p.Enqueue(job) }).WithTimeout(time.Second).Should(BeTrue())
		Expect(p.Enqueue(job)).To(BeFalse())

		close(docs.block)
		p.Close()
	})

	It("stops accepting jobs after Close", func() {
		p := newPool(1, 1)
		p.Close()
		p.Close()

		Expect(p.Enqueue(ingest.Job{Path: "x"})).To(BeFalse())
		Expect(p.Submit(context.Background(), ingest.Job{Path: "x"})).To(MatchError(ingest.ErrPoolClosed))
	})

	It("stops waiting for capacity when the context ends", func() {
		docs.block = make(chan struct{})
		writeFile(filepath.Join(dir, "a.txt"), "alpha")
		job := ingest.Job{Path: filepath.Join(dir, "a.txt")}

		p := newPool(1, 1)
		Expect(p.Enqueue(job)).To(BeTrue())
		Eventually(func() bool { return p.Enqueue(job) }).WithTimeout(time.Second).Should(BeTrue())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		Expect(p.Submit(ctx, job)).To(MatchError(context.DeadlineExceeded))

		close(docs.block)
		p.Close()
	})
})
