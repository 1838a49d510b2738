package ports

import "context"

// ChatRole tags a message in a chat-completion request.
type ChatRole string

const (
	RoleSystem ChatRole = "system"
	RoleUser   ChatRole = "user"
)

type ChatMessage struct {
	Role    ChatRole
	Content string
}

// ChatRequest is one call against the completion endpoint. Temperature is set
// per call; pipeline stages each carry their own value.
type ChatRequest struct {
	Messages    []ChatMessage
	Temperature float64
}

// ChatClient abstracts the chat-completion endpoint: role-tagged messages in,
// one text completion out. Latency and transient failure are the caller's
// problem; implementations only translate.
type ChatClient interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// EmbeddingClient turns input text into a fixed-length vector.
type EmbeddingClient interface {
	Embed(ctx context.Context, input string) ([]float32, error)
}
