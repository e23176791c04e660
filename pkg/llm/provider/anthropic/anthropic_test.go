package anthropic_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docrag/pkg/llm"
	"github.com/papercomputeco/docrag/pkg/llm/provider/anthropic"
)

var _ = Describe("Anthropic Provider", func() {
	var (
		server   *httptest.Server
		received map[string]any
		apiKey   string
		status   int
		body     string
		p        *anthropic.Provider
	)

	BeforeEach(func() {
		received = nil
		status = http.StatusOK
		body = `{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "The Krebs cycle runs in the mitochondrial matrix."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 30, "output_tokens": 11}
		}`

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey = r.Header.Get("x-api-key")
			Expect(r.URL.Path).To(Equal("/v1/messages"))
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			w.Write([]byte(body))
		}))

		var err error
		p, err = anthropic.New(anthropic.Config{BaseURL: server.URL + "/v1", APIKey: "sk-ant-test"})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	It("requires an API key", func() {
		_, err := anthropic.New(anthropic.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("returns 'anthropic'", func() {
		Expect(p.Name()).To(Equal("anthropic"))
	})

	Describe("Chat", func() {
		It("sends the system prompt separately and maps usage", func() {
			resp, err := p.Chat(context.Background(), &llm.ChatRequest{
				System:   "Answer from context.",
				Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "Where does the Krebs cycle happen?")},
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(apiKey).To(Equal("sk-ant-test"))
			Expect(received).To(HaveKeyWithValue("model", anthropic.DefaultModel))
			Expect(received).To(HaveKeyWithValue("max_tokens", BeNumerically("==", 1024)))
			Expect(received).To(HaveKey("system"))
			Expect(received["messages"]).To(HaveLen(1))

			Expect(resp.Message.GetText()).To(Equal("The Krebs cycle runs in the mitochondrial matrix."))
			Expect(resp.StopReason).To(Equal("end_turn"))
			Expect(resp.Usage).NotTo(BeNil())
			Expect(resp.Usage.TotalTokens).To(Equal(41))
		})

		It("wraps API errors", func() {
			status = http.StatusBadRequest
			body = `{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens: too large"}}`

			_, err := p.Chat(context.Background(), llm.NewPromptRequest("hi"))
			Expect(err).To(MatchError(llm.ErrProvider))
		})
	})

	Describe("Complete", func() {
		It("returns the reply text", func() {
			text, err := p.Complete(context.Background(), "Where does the Krebs cycle happen?")
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("The Krebs cycle runs in the mitochondrial matrix."))
		})
	})
})
