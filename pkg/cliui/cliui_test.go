package cliui_test

import (
	"bytes"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docrag/pkg/cliui"
	"github.com/papercomputeco/docrag/pkg/storage"
)

var _ = Describe("cliui", func() {
	Describe("Step", func() {
		It("ends with a success line carrying the message", func() {
			var buf bytes.Buffer
			err := cliui.Step(&buf, "Indexing 2 files", func() error { return nil })
			Expect(err).NotTo(HaveOccurred())

			lines := strings.Split(buf.String(), "\r")
			last := lines[len(lines)-1]
			Expect(last).To(ContainSubstring(cliui.SuccessMark))
			Expect(last).To(ContainSubstring("Indexing 2 files"))
			Expect(last).To(HaveSuffix("\n"))
		})

		It("returns fn's error and marks the line as failed", func() {
			var buf bytes.Buffer
			boom := errors.New("server unreachable")
			err := cliui.Step(&buf, "Uploading notes.pdf", func() error { return boom })
			Expect(err).To(MatchError(boom))

			lines := strings.Split(buf.String(), "\r")
			Expect(lines[len(lines)-1]).To(ContainSubstring(cliui.FailMark))
		})

		It("writes nothing after returning", func() {
			var buf bytes.Buffer
			Expect(cliui.Step(&buf, "Re-indexing", func() error {
				time.Sleep(200 * time.Millisecond)
				return nil
			})).To(Succeed())

			written := buf.Len()
			Consistently(buf.Len, 250*time.Millisecond, 50*time.Millisecond).Should(Equal(written))
		})
	})

	DescribeTable("DocumentMark",
		func(status storage.Status, want string) {
			Expect(cliui.DocumentMark(status)).To(Equal(want))
		},
		Entry("indexed", storage.StatusIndexed, cliui.SuccessMark),
		Entry("failed", storage.StatusFailed, cliui.FailMark),
		Entry("processing", storage.StatusProcessing, cliui.PendingMark),
		Entry("unknown", storage.Status(""), cliui.PendingMark),
	)

	DescribeTable("FormatBytes",
		func(n int64, want string) {
			Expect(cliui.FormatBytes(n)).To(Equal(want))
		},
		Entry("bytes", int64(512), "512 B"),
		Entry("exact KiB", int64(1024), "1.0 KiB"),
		Entry("fractional KiB", int64(1536), "1.5 KiB"),
		Entry("MiB", int64(5*1024*1024), "5.0 MiB"),
	)

	DescribeTable("FormatDuration",
		func(d time.Duration, want string) {
			Expect(cliui.FormatDuration(d)).To(Equal(want))
		},
		Entry("milliseconds", 12*time.Millisecond, "12ms"),
		Entry("seconds", 3200*time.Millisecond, "3.2s"),
	)

	It("renders markdown answers", func() {
		out, err := cliui.RenderMarkdownWidth("Mitosis yields **two** cells.", 40)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("two"))
		Expect(out).To(ContainSubstring("cells"))
	})
})
