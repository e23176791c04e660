package storageutils_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docrag/pkg/logger"
	"github.com/papercomputeco/docrag/pkg/storage/inmemory"
	"github.com/papercomputeco/docrag/pkg/storage/sqlite"
	storageutils "github.com/papercomputeco/docrag/pkg/storage/utils"
)

var _ = Describe("NewStorageDriver", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("builds an in-memory driver", func() {
		d, err := storageutils.NewStorageDriver(ctx, &storageutils.NewStorageDriverOpts{
			ProviderType: "inmemory",
			Logger:       logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeAssignableToTypeOf(&inmemory.Driver{}))
	})

	It("defaults to sqlite", func() {
		d, err := storageutils.NewStorageDriver(ctx, &storageutils.NewStorageDriverOpts{
			SQLitePath: ":memory:",
			Logger:     logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()
		Expect(d).To(BeAssignableToTypeOf(&sqlite.Driver{}))
	})

	It("requires a sqlite path", func() {
		_, err := storageutils.NewStorageDriver(ctx, &storageutils.NewStorageDriverOpts{
			ProviderType: "sqlite",
			Logger:       logger.Nop(),
		})
		Expect(err).To(MatchError(ContainSubstring("database path")))
	})

	It("requires a postgres DSN", func() {
		_, err := storageutils.NewStorageDriver(ctx, &storageutils.NewStorageDriverOpts{
			ProviderType: "postgres",
			Logger:       logger.Nop(),
		})
		Expect(err).To(MatchError(ContainSubstring("DSN")))
	})

	It("rejects unknown providers", func() {
		_, err := storageutils.NewStorageDriver(ctx, &storageutils.NewStorageDriverOpts{
			ProviderType: "mongo",
			Logger:       logger.Nop(),
		})
		Expect(err).To(MatchError(ContainSubstring("unsupported storage provider")))
	})
})
