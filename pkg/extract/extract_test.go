package extract_test

import (
	"archive/zip"
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"

	"github.com/papercomputeco/docrag/pkg/extract"
)

func zipOf(files map[string]string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		Expect(err).NotTo(HaveOccurred())
		_, err = w.Write([]byte(body))
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(zw.Close()).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("FileType", func() {
	DescribeTable("normalizes the extension",
		func(filename, want string) {
			Expect(extract.FileType(filename)).To(Equal(want))
		},
		Entry("lower case", "notes.pdf", "pdf"),
		Entry("upper case", "NOTES.PDF", "pdf"),
		Entry("nested dots", "ch.1.notes.md", "md"),
		Entry("no extension", "README", ""),
	)
})

var _ = Describe("Validate", func() {
	It("accepts a supported, non-empty file under the limit", func() {
		Expect(extract.Validate("a.txt", 10, 0)).To(Succeed())
	})

	It("rejects an empty file", func() {
		Expect(extract.Validate("a.txt", 0, 0)).To(MatchError(extract.ErrEmptyText))
	})

	It("rejects a file over the limit", func() {
		err := extract.Validate("a.txt", extract.DefaultMaxBytes+1, 0)
		Expect(err).To(MatchError(extract.ErrTooLarge))
	})

	It("honours a custom limit", func() {
		Expect(extract.Validate("a.txt", 11, 10)).To(MatchError(extract.ErrTooLarge))
	})

	It("rejects an unsupported extension", func() {
		err := extract.Validate("photo.png", 10, 0)
		Expect(err).To(MatchError(extract.ErrUnsupportedType))
		Expect(err.Error()).To(ContainSubstring("pdf"))
	})
})

var _ = Describe("Text", func() {
	It("trims plain text", func() {
		text, err := extract.Text("a.txt", []byte("\n  hello world \n\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("hello world"))
	})

	It("rejects whitespace-only documents", func() {
		_, err := extract.Text("a.txt", []byte(" \n\t "))
		Expect(err).To(MatchError(extract.ErrEmptyText))
	})

	It("rejects unsupported types", func() {
		_, err := extract.Text("a.jpg", []byte("x"))
		Expect(err).To(MatchError(extract.ErrUnsupportedType))
	})

	It("strips markdown markup", func() {
		src := "# Cells\n\nThe **nucleus** holds `DNA`.\n\n- mitosis\n- meiosis\n\n[link](http://example.com)\n"
		text, err := extract.Text("bio.md", []byte(src))
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(ContainSubstring("Cells"))
		Expect(text).To(ContainSubstring("The nucleus holds DNA."))
		Expect(text).To(ContainSubstring("mitosis"))
		Expect(text).To(ContainSubstring("link"))
		Expect(text).NotTo(ContainSubstring("**"))
		Expect(text).NotTo(ContainSubstring("#"))
		Expect(text).NotTo(ContainSubstring("http://example.com"))
	})

	It("keeps fenced code verbatim", func() {
		src := "Intro\n\n```go\nfmt.Println(\"hi\")\n```\n"
		text, err := extract.Text("code.md", []byte(src))
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(ContainSubstring(`fmt.Println("hi")`))
		Expect(text).NotTo(ContainSubstring("```"))
	})

	It("reads docx paragraphs", func() {
		data := zipOf(map[string]string{
			"word/document.xml": `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>Photosynthesis makes </w:t></w:r><w:r><w:t>glucose.</w:t></w:r></w:p>
<w:p><w:r><w:t>Second paragraph.</w:t></w:r></w:p>
</w:body></w:document>`,
			"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?><Relationships/>`,
		})

		text, err := extract.Text("bio.docx", data)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("Photosynthesis makes glucose.\nSecond paragraph."))
	})

	It("reads pptx slides in slide order", func() {
		slide := func(body string) string {
			return `<p:sld xmlns:p="p" xmlns:a="a"><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` +
				body + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
		}
		data := zipOf(map[string]string{
			"ppt/slides/slide10.xml": slide("Tenth"),
			"ppt/slides/slide2.xml":  slide("Second"),
			"ppt/slides/slide1.xml":  slide("First"),
			"ppt/slides/_rels/slide1.xml.rels": "<Relationships/>",
		})

		text, err := extract.Text("deck.pptx", data)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("First\n\n\nSecond\n\n\nTenth"))
	})

	It("reads xlsx sheets as tab-separated rows", func() {
		f := excelize.NewFile()
		Expect(f.SetCellValue("Sheet1", "A1", "element")).To(Succeed())
		Expect(f.SetCellValue("Sheet1", "B1", "symbol")).To(Succeed())
		Expect(f.SetCellValue("Sheet1", "A2", "Oxygen")).To(Succeed())
		Expect(f.SetCellValue("Sheet1", "B2", "O")).To(Succeed())
		buf, err := f.WriteToBuffer()
		Expect(err).NotTo(HaveOccurred())

		text, err := extract.Text("table.xlsx", buf.Bytes())
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("Sheet: Sheet1\nelement\tsymbol\nOxygen\tO"))
	})

	It("fails on a corrupt pdf", func() {
		_, err := extract.Text("broken.pdf", []byte("not a pdf"))
		Expect(err).To(HaveOccurred())
	})
})
