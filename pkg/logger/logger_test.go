package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docrag/pkg/logger"
)

func decodeLines(buf *bytes.Buffer) []map[string]any {
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		Expect(json.Unmarshal([]byte(line), &rec)).To(Succeed())
		records = append(records, rec)
	}
	return records
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

var _ = Describe("Logger", func() {
	Describe("New", func() {
		It("writes text records at info by default", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf))
			l.Info("document indexed", "chunks", 4)
			l.Debug("embedding chunk")

			Expect(buf.String()).To(ContainSubstring("document indexed"))
			Expect(buf.String()).To(ContainSubstring("chunks=4"))
			Expect(buf.String()).NotTo(ContainSubstring("embedding chunk"))
		})

		It("lets debug records through with WithDebug", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithDebug(true))
			l.Debug("embedding chunk", "index", 2)

			Expect(buf.String()).To(ContainSubstring("embedding chunk"))
		})

		It("emits one JSON object per record", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true))
			l.Info("retrieved", "hits", 3)
			l.Warn("below floor", "score", 0.1)

			records := decodeLines(&buf)
			Expect(records).To(HaveLen(2))
			Expect(records[0]["msg"]).To(Equal("retrieved"))
			Expect(records[0]["hits"]).To(BeNumerically("==", 3))
			Expect(records[1]["level"]).To(Equal("WARN"))
		})

		It("renders through the pretty handler", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithPretty(true))
			l.Info("listening", "addr", ":8000")

			Expect(buf.String()).To(ContainSubstring("listening"))
			Expect(buf.String()).To(ContainSubstring(":8000"))
		})

		It("fans out to every writer and skips nil ones", func() {
			var a, b bytes.Buffer
			l := logger.New(logger.WithWriters(&a, nil, &b))
			l.Info("watching")

			Expect(a.String()).To(ContainSubstring("watching"))
			Expect(b.String()).To(ContainSubstring("watching"))
		})

		It("adds file and line with WithSource", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true), logger.WithSource(true))
			l.Info("sourced")

			Expect(decodeLines(&buf)[0]).To(HaveKey(slog.SourceKey))
		})
	})

	Describe("WithComponent", func() {
		It("tags every record, including those of child loggers", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true), logger.WithComponent("watch"))
			l.Info("settled", "path", "notes.md")
			l.With("document_id", "abc").Info("indexed")

			records := decodeLines(&buf)
			Expect(records).To(HaveLen(2))
			for _, rec := range records {
				Expect(rec).To(HaveKeyWithValue(logger.ComponentKey, "watch"))
			}
			Expect(records[1]).To(HaveKeyWithValue("document_id", "abc"))
		})

		It("adds nothing when unset", func() {
			var buf bytes.Buffer
			logger.New(logger.WithWriter(&buf), logger.WithJSON(true)).Info("plain")

			Expect(decodeLines(&buf)[0]).NotTo(HaveKey(logger.ComponentKey))
		})
	})

	Describe("Nop", func() {
		It("is disabled at every level", func() {
			h := logger.Nop().Handler()
			for _, lvl := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
				Expect(h.Enabled(context.Background(), lvl)).To(BeFalse())
			}
		})

		It("survives With and WithGroup", func() {
			Expect(func() {
				logger.Nop().With("k", "v").WithGroup("g").Error("dropped")
			}).NotTo(Panic())
		})
	})

	Describe("Multi", func() {
		It("sends records to the terminal and the log file alike", func() {
			var term, file bytes.Buffer
			multi := logger.Multi(
				logger.New(logger.WithWriter(&term)),
				logger.New(logger.WithWriter(&file), logger.WithJSON(true)),
			)
			multi.Info("server started", "addr", ":8000")

			Expect(term.String()).To(ContainSubstring("server started"))
			Expect(decodeLines(&file)[0]).To(HaveKeyWithValue("addr", ":8000"))
		})

		It("honours each logger's own level", func() {
			var quiet, verbose bytes.Buffer
			multi := logger.Multi(
				logger.New(logger.WithWriter(&quiet)),
				logger.New(logger.WithWriter(&verbose), logger.WithDebug(true)),
			)
			multi.Debug("chunk embedded")

			Expect(quiet.String()).To(BeEmpty())
			Expect(verbose.String()).To(ContainSubstring("chunk embedded"))
		})

		It("carries With and WithGroup to every destination", func() {
			var a, b bytes.Buffer
			multi := logger.Multi(
				logger.New(logger.WithWriter(&a), logger.WithJSON(true)),
				logger.New(logger.WithWriter(&b), logger.WithJSON(true)),
			)
			multi.With("request_id", "r1").WithGroup("http").Info("handled", "status", 200)

			for _, buf := range []*bytes.Buffer{&a, &b} {
				rec := decodeLines(buf)[0]
				Expect(rec).To(HaveKeyWithValue("request_id", "r1"))
				group, ok := rec["http"].(map[string]any)
				Expect(ok).To(BeTrue())
				Expect(group["status"]).To(BeNumerically("==", 200))
			}
		})

		It("skips nil loggers", func() {
			var buf bytes.Buffer
			multi := logger.Multi(nil, logger.New(logger.WithWriter(&buf)), nil)
			multi.Info("still logged")

			Expect(buf.String()).To(ContainSubstring("still logged"))
		})

		It("discards everything when given no loggers", func() {
			Expect(logger.Multi().Handler().Enabled(context.Background(), slog.LevelError)).To(BeFalse())
			Expect(logger.Multi(nil).Handler().Enabled(context.Background(), slog.LevelError)).To(BeFalse())
		})

		It("keeps delivering after one destination fails and reports the failure", func() {
			var buf bytes.Buffer
			multi := logger.Multi(
				slog.New(failingHandler{}),
				logger.New(logger.WithWriter(&buf)),
			)

			r := slog.NewRecord(time.Now(), slog.LevelInfo, "partial", 0)
			err := multi.Handler().Handle(context.Background(), r)
			Expect(err).To(MatchError(ContainSubstring("disk full")))
			Expect(buf.String()).To(ContainSubstring("partial"))
		})
	})
})
