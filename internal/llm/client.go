package llm

import "context"

// Credentials carries the provider key supplied by the caller. Requests
// may bring their own key (the web layer forwards the user's X-API-Key);
// clients fall back to their server-configured key when it is empty.
type Credentials struct {
	APIKey string
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// TextClient generates a completion for an assembled prompt.
type TextClient interface {
	GenerateText(ctx context.Context, prompt string, creds Credentials) (Response, error)
}

// ImageClient renders an image for a prompt and returns the raw bytes.
type ImageClient interface {
	GenerateImage(ctx context.Context, prompt string, creds Credentials) ([]byte, error)
}
