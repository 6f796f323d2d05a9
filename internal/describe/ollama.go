package describe

import (
	"context"
	"fmt"
	"strings"

	"github.com/drishti-ai/drishti/internal/compose"
)

// Ollama calls a local Ollama server's chat endpoint.
type Ollama struct {
	opts Options
}

// NewOllama returns an Ollama describer.
func NewOllama(opts Options) *Ollama {
	opts.Endpoint = strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultOllamaURL
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 200
	}
	opts.HTTPClient = httpClient(opts)
	return &Ollama{opts: opts}
}

type ollamaRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  struct {
		Temperature float64 `json:"temperature"`
		NumPredict  int     `json:"num_predict"`
	} `json:"options"`
}

type ollamaResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

// Describe returns the assistant message content.
func (o *Ollama) Describe(ctx context.Context, req compose.Request) (string, error) {
	body := ollamaRequest{
		Model:    o.opts.Model,
		Messages: messages(req),
		Stream:   false,
	}
	body.Options.Temperature = o.opts.Temperature
	body.Options.NumPredict = o.opts.MaxTokens

	var out ollamaResponse
	if err := postJSON(ctx, o.opts.HTTPClient, o.opts.Endpoint+"/api/chat", nil, body, &out); err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama: %s", out.Error)
	}

	content := strings.TrimSpace(out.Message.Content)
	if content == "" {
		return "", ErrEmptyDescription
	}
	return content, nil
}
