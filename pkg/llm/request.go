package llm

// ChatRequest represents a provider-agnostic chat completion request.
// Provider clients translate it into their own wire format.
type ChatRequest struct {
	// Model name (e.g., "gpt-4o-mini", "claude-3-5-haiku-latest", "llama3.2").
	// Empty uses the provider's configured model.
	Model string `json:"model"`

	// Conversation messages
	Messages []Message `json:"messages"`

	// System prompt (some providers handle this separately from messages)
	System string `json:"system,omitempty"`

	// Generation parameters (unified across providers)
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// NewPromptRequest wraps a single rendered prompt as a one-message request.
func NewPromptRequest(prompt string) *ChatRequest {
	return &ChatRequest{
		Messages: []Message{NewTextMessage(RoleUser, prompt)},
	}
}
