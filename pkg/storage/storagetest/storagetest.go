// Package storagetest holds the behaviour every storage.Driver must share,
// written as ginkgo specs so each driver package can run them.
package storagetest

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docrag/pkg/storage"
)

// NewDocument returns an indexed document uploaded at the given time.
func NewDocument(id, filename string, uploadedAt time.Time) *storage.Document {
	return &storage.Document{
		ID:         id,
		Filename:   filename,
		FileType:   "pdf",
		FileSize:   2048,
		Status:     storage.StatusIndexed,
		ChunkCount: 3,
		UploadedAt: uploadedAt.UTC().Truncate(time.Millisecond),
		UpdatedAt:  uploadedAt.UTC().Truncate(time.Millisecond),
	}
}

// DescribeDriver registers the shared driver specs. newDriver is called
// before each spec; the driver is closed after it.
func DescribeDriver(newDriver func() storage.Driver) {
	Describe("storage.Driver behaviour", func() {
		describeDriver(newDriver)
	})
}

func describeDriver(newDriver func() storage.Driver) {
	var (
		driver storage.Driver
		ctx    context.Context
		base   time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		base = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
		driver = nil
		driver = newDriver()
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	Describe("Put and Get", func() {
		It("stores and retrieves a document", func() {
			doc := NewDocument("doc-1", "biology.pdf", base)
			Expect(driver.Put(ctx, doc)).To(Succeed())

			got, err := driver.Get(ctx, "doc-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Filename).To(Equal("biology.pdf"))
			Expect(got.FileType).To(Equal("pdf"))
			Expect(got.FileSize).To(Equal(int64(2048)))
			Expect(got.Status).To(Equal(storage.StatusIndexed))
			Expect(got.ChunkCount).To(Equal(3))
			Expect(got.UploadedAt.Equal(doc.UploadedAt)).To(BeTrue())
		})

		It("returns content from Get but not from List", func() {
			doc := NewDocument("doc-1", "biology.pdf", base)
			doc.Content = "Osmosis moves water across a membrane."
			Expect(driver.Put(ctx, doc)).To(Succeed())

			got, err := driver.Get(ctx, "doc-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Content).To(Equal(doc.Content))

			docs, err := driver.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Content).To(BeEmpty())
		})

		It("replaces a document with the same ID", func() {
			doc := NewDocument("doc-1", "biology.pdf", base)
			Expect(driver.Put(ctx, doc)).To(Succeed())

			doc.Status = storage.StatusFailed
			doc.ChunkCount = 0
			doc.Error = "embedding service unavailable"
			doc.UpdatedAt = base.Add(time.Minute)
			Expect(driver.Put(ctx, doc)).To(Succeed())

			got, err := driver.Get(ctx, "doc-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(storage.StatusFailed))
			Expect(got.ChunkCount).To(Equal(0))
			Expect(got.Error).To(Equal("embedding service unavailable"))

			docs, err := driver.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
		})

		It("returns ErrNotFound for a missing document", func() {
			_, err := driver.Get(ctx, "missing")
			Expect(err).To(MatchError(storage.ErrNotFound))

			var notFound storage.NotFoundError
			Expect(err).To(BeAssignableToTypeOf(notFound))
		})

		It("rejects nil documents", func() {
			Expect(driver.Put(ctx, nil)).To(MatchError(ContainSubstring("nil document")))
		})
	})

	Describe("List", func() {
		It("returns an empty list for an empty store", func() {
			docs, err := driver.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(BeEmpty())
		})

		It("orders documents newest upload first", func() {
			Expect(driver.Put(ctx, NewDocument("old", "a.pdf", base))).To(Succeed())
			Expect(driver.Put(ctx, NewDocument("new", "b.pdf", base.Add(2*time.Hour)))).To(Succeed())
			Expect(driver.Put(ctx, NewDocument("mid", "c.pdf", base.Add(time.Hour)))).To(Succeed())

			docs, err := driver.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			ids := make([]string, 0, len(docs))
			for _, d := range docs {
				ids = append(ids, d.ID)
			}
			Expect(ids).To(Equal([]string{"new", "mid", "old"}))
		})
	})

	Describe("Delete", func() {
		It("removes a document", func() {
			Expect(driver.Put(ctx, NewDocument("doc-1", "a.pdf", base))).To(Succeed())
			Expect(driver.Delete(ctx, "doc-1")).To(Succeed())

			_, err := driver.Get(ctx, "doc-1")
			Expect(err).To(MatchError(storage.ErrNotFound))
		})

		It("returns ErrNotFound for a missing document", func() {
			Expect(driver.Delete(ctx, "missing")).To(MatchError(storage.ErrNotFound))
		})
	})
}
