// Package describe turns composed scene prompts into spoken descriptions
// using a chat-completion backend.
package describe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/drishti-ai/drishti/internal/compose"
)

// Backend names.
const (
	BackendAzure  = "azure"
	BackendOllama = "ollama"

	DefaultOllamaURL = "http://localhost:11434"
	maxErrorBody     = 512
)

var (
	// ErrNotConfigured reports a backend with no endpoint.
	ErrNotConfigured = errors.New("description endpoint not configured")
	// ErrEmptyDescription reports a response with no usable content.
	ErrEmptyDescription = errors.New("description service returned no content")
)

// Describer generates a description for one request.
type Describer interface {
	Describe(ctx context.Context, req compose.Request) (string, error)
}

// Options configures either backend.
type Options struct {
	Backend     string
	Endpoint    string
	Key         string
	Deployment  string
	APIVersion  string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration

	HTTPClient *http.Client
}

// New returns the describer selected by opts.Backend.
func New(opts Options) (Describer, error) {
	switch opts.Backend {
	case "", BackendAzure:
		return NewAzureOpenAI(opts), nil
	case BackendOllama:
		return NewOllama(opts), nil
	default:
		return nil, fmt.Errorf("unsupported description backend %q", opts.Backend)
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func messages(req compose.Request) []chatMessage {
	return []chatMessage{
		{Role: "system", Content: req.System},
		{Role: "user", Content: req.Prompt},
	}
}

func httpClient(opts Options) *http.Client {
	if opts.HTTPClient != nil {
		return opts.HTTPClient
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// postJSON sends body and decodes a 2xx JSON response into out.
func postJSON(ctx context.Context, client *http.Client, target string, headers map[string]string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("description service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
