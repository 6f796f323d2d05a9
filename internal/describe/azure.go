package describe

import (
	"context"
	"net/url"
	"strings"

	"github.com/drishti-ai/drishti/internal/compose"
)

// AzureOpenAI calls an Azure OpenAI chat-completions deployment.
type AzureOpenAI struct {
	opts Options
}

// NewAzureOpenAI returns an Azure OpenAI describer.
func NewAzureOpenAI(opts Options) *AzureOpenAI {
	opts.Endpoint = strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	if opts.APIVersion == "" {
		opts.APIVersion = "2024-02-01"
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 200
	}
	opts.HTTPClient = httpClient(opts)
	return &AzureOpenAI{opts: opts}
}

type azureRequest struct {
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type azureResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Describe returns the first choice's content.
func (a *AzureOpenAI) Describe(ctx context.Context, req compose.Request) (string, error) {
	if a.opts.Endpoint == "" {
		return "", ErrNotConfigured
	}

	target := a.opts.Endpoint + "/openai/deployments/" + url.PathEscape(a.opts.Deployment) +
		"/chat/completions?api-version=" + url.QueryEscape(a.opts.APIVersion)

	var out azureResponse
	err := postJSON(ctx, a.opts.HTTPClient, target, map[string]string{"api-key": a.opts.Key}, azureRequest{
		Messages:    messages(req),
		MaxTokens:   a.opts.MaxTokens,
		Temperature: a.opts.Temperature,
	}, &out)
	if err != nil {
		return "", err
	}

	if len(out.Choices) == 0 {
		return "", ErrEmptyDescription
	}
	content := strings.TrimSpace(out.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyDescription
	}
	return content, nil
}
