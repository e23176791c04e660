package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docrag/pkg/llm"
	"github.com/papercomputeco/docrag/pkg/llm/provider/ollama"
)

var _ = Describe("Ollama Provider", func() {
	var (
		server   *httptest.Server
		received map[string]any
		status   int
		body     string
		p        *ollama.Provider
	)

	BeforeEach(func() {
		received = nil
		status = http.StatusOK
		body = `{
			"model": "llama3.2",
			"created_at": "2024-01-01T00:00:00Z",
			"message": {"role": "assistant", "content": "  Mitochondria produce ATP.  "},
			"done": true,
			"done_reason": "stop",
			"total_duration": 5000000000,
			"prompt_eval_count": 26,
			"eval_count": 12
		}`

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/api/chat"))
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
			w.WriteHeader(status)
			w.Write([]byte(body))
		}))

		var err error
		p, err = ollama.New(ollama.Config{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	It("returns 'ollama'", func() {
		Expect(p.Name()).To(Equal("ollama"))
	})

	Describe("Chat", func() {
		It("sends a non-streaming request with the system prompt first", func() {
			temp := 0.2
			resp, err := p.Chat(context.Background(), &llm.ChatRequest{
				System:      "Be terse.",
				Messages:    []llm.Message{llm.NewTextMessage(llm.RoleUser, "What do mitochondria do?")},
				Temperature: &temp,
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(received).To(HaveKeyWithValue("model", ollama.DefaultModel))
			Expect(received).To(HaveKeyWithValue("stream", false))
			Expect(received["messages"]).To(HaveLen(2))
			first := received["messages"].([]any)[0].(map[string]any)
			Expect(first).To(HaveKeyWithValue("role", "system"))
			Expect(received["options"]).To(HaveKeyWithValue("temperature", 0.2))

			Expect(resp.Model).To(Equal("llama3.2"))
			Expect(resp.StopReason).To(Equal("stop"))
			Expect(resp.Usage.PromptTokens).To(Equal(26))
			Expect(resp.Usage.CompletionTokens).To(Equal(12))
			Expect(resp.Usage.TotalTokens).To(Equal(38))
			Expect(resp.Usage.TotalDurationNs).To(Equal(int64(5000000000)))
		})

		It("surfaces the server error message", func() {
			status = http.StatusNotFound
			body = `{"error":"model \"llama3.2\" not found, try pulling it first"}`

			_, err := p.Chat(context.Background(), llm.NewPromptRequest("hi"))
			Expect(err).To(MatchError(llm.ErrProvider))
			Expect(err.Error()).To(ContainSubstring("try pulling it first"))
		})
	})

	Describe("Complete", func() {
		It("returns the trimmed reply to a single user message", func() {
			text, err := p.Complete(context.Background(), "What do mitochondria do?")
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("Mitochondria produce ATP."))

			msgs := received["messages"].([]any)
			Expect(msgs).To(HaveLen(1))
			Expect(msgs[0]).To(HaveKeyWithValue("role", "user"))
			Expect(msgs[0]).To(HaveKeyWithValue("content", "What do mitochondria do?"))
		})

		It("fails on an empty reply", func() {
			body = `{"model":"llama3.2","message":{"role":"assistant","content":"   "},"done":true}`

			_, err := p.Complete(context.Background(), "hi")
			Expect(err).To(MatchError(llm.ErrEmptyCompletion))
		})
	})
})
