package llm

import "context"

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single message in a chat conversation.
// This type is shared with the RAG engine and other structured message consumers.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateRequest holds everything a provider needs for one completion.
type GenerateRequest struct {
	// System is prepended as a system message when non-empty.
	System string

	// Messages is the conversation so far, oldest first. The last message
	// is the one being answered.
	Messages []Message

	// Temperature controls the randomness of the output.
	Temperature float32
}

// Client bundles the provider operations the service needs. Both the
// OpenAI-compatible and the Ollama clients implement it.
type Client interface {
	// Embed generates embeddings for the given texts, one vector per input
	// in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Generate returns the full completion for the request.
	Generate(ctx context.Context, req GenerateRequest) (string, error)

	// Stream starts a streaming completion. Deltas arrive on the first
	// channel; a failure arrives on the second. Both channels are closed
	// when the stream ends.
	Stream(ctx context.Context, req GenerateRequest) (<-chan string, <-chan error)
}

// messages flattens a request into role-tagged messages with the system
// prompt first.
func (r GenerateRequest) messages() []Message {
	msgs := make([]Message, 0, len(r.Messages)+1)
	if r.System != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: r.System})
	}
	return append(msgs, r.Messages...)
}
