package ports

import "context"

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single prompt message sent to a chat model.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatModel generates a completion for a list of messages.
type ChatModel interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

// Embedder turns texts into vectors. The result has one vector per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
