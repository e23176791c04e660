package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/docrag/pkg/eventstream"
	"github.com/papercomputeco/docrag/pkg/logger"
)

type recordingWriter struct {
	mu       sync.Mutex
	messages []kafkago.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		writer    *recordingWriter
		publisher *Publisher
		ctx       context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		writer = &recordingWriter{}
		publisher = newPublisher(writer, "docrag.documents", logger.Nop())
	})

	It("requires brokers", func() {
		_, err := NewPublisher(Config{}, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("broker")))
	})

	It("rejects nil events", func() {
		Expect(publisher.PublishDocument(ctx, nil)).To(MatchError(eventstream.ErrNilEvent))
		Expect(writer.messages).To(BeEmpty())
	})

	It("writes a JSON message keyed by document ID", func() {
		event := eventstream.NewDocumentEvent(
			eventstream.EventTypeDocumentIndexed,
			eventstream.EventSource{Service: "docrag"},
			eventstream.DocumentMeta{ID: "doc-42", Filename: "bio.pdf", ChunkCount: 7},
		)

		Expect(publisher.PublishDocument(ctx, event)).To(Succeed())
		Expect(writer.messages).To(HaveLen(1))

		msg := writer.messages[0]
		Expect(string(msg.Key)).To(Equal("doc-42"))
		Expect(msg.Headers).To(ContainElement(kafkago.Header{
			Key:   "event_type",
			Value: []byte("docrag.document.indexed"),
		}))
		Expect(msg.Headers).To(ContainElement(kafkago.Header{
			Key:   "schema_version",
			Value: []byte("1"),
		}))

		var decoded eventstream.DocumentEvent
		Expect(json.Unmarshal(msg.Value, &decoded)).To(Succeed())
		Expect(decoded.EventID).To(Equal(event.EventID))
		Expect(decoded.Document.ChunkCount).To(Equal(7))
	})

	It("wraps write failures", func() {
		writer.err = errors.New("leader not available")
		event := eventstream.NewDocumentEvent(eventstream.EventTypeDocumentDeleted,
			eventstream.EventSource{Service: "docrag"}, eventstream.DocumentMeta{ID: "doc-1"})

		err := publisher.PublishDocument(ctx, event)
		Expect(err).To(MatchError(ContainSubstring("leader not available")))
		Expect(err).To(MatchError(ContainSubstring("docrag.documents")))
	})

	It("closes the writer", func() {
		Expect(publisher.Close()).To(Succeed())
		Expect(writer.closed).To(BeTrue())
	})
})
