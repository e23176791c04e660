package ingest_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docrag/pkg/extract"
	"github.com/papercomputeco/docrag/pkg/ingest"
)

func writeFile(path, body string) {
	Expect(os.MkdirAll(filepath.Dir(path), 0o755)).To(Succeed())
	Expect(os.WriteFile(path, []byte(body), 0o600)).To(Succeed())
}

var _ = Describe("Collect", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		writeFile(filepath.Join(dir, "a.txt"), "a")
		writeFile(filepath.Join(dir, "notes", "b.md"), "b")
		writeFile(filepath.Join(dir, "notes", "photo.png"), "png")
		writeFile(filepath.Join(dir, ".git", "c.txt"), "c")
		writeFile(filepath.Join(dir, "notes", ".draft.txt"), "d")
	})

	It("walks directories for supported, visible files", func() {
		files, err := ingest.Collect([]string{dir})
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(Equal([]string{
			filepath.Join(dir, "a.txt"),
			filepath.Join(dir, "notes", "b.md"),
		}))
	})

	It("deduplicates overlapping paths", func() {
		files, err := ingest.Collect([]string{dir, filepath.Join(dir, "a.txt")})
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(HaveLen(2))
	})

	It("rejects an unsupported file named directly", func() {
		_, err := ingest.Collect([]string{filepath.Join(dir, "notes", "photo.png")})
		Expect(err).To(MatchError(extract.ErrUnsupportedType))
	})

	It("fails on a missing path", func() {
		_, err := ingest.Collect([]string{filepath.Join(dir, "missing")})
		Expect(err).To(MatchError(os.ErrNotExist))
	})
})
