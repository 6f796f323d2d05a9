package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/drishti-ai/drishti/internal/audio"
)

// Recognizer transcribes short utterances.
type Recognizer struct {
	endpoint   string
	key        string
	language   string
	httpClient *http.Client
}

// NewRecognizer returns a short-audio recognizer.
func NewRecognizer(opts Options) *Recognizer {
	return &Recognizer{
		endpoint:   opts.sttURL(),
		key:        opts.Key,
		language:   opts.Language,
		httpClient: opts.client(8 * time.Second),
	}
}

type recognitionResponse struct {
	RecognitionStatus string `json:"RecognitionStatus"`
	DisplayText       string `json:"DisplayText"`
}

// Recognize uploads 16kHz mono s16 PCM and returns the display text.
func (r *Recognizer) Recognize(ctx context.Context, pcm []byte) (string, error) {
	if r.endpoint == "" || r.key == "" {
		return "", ErrNotConfigured
	}

	q := url.Values{}
	q.Set("language", r.language)
	q.Set("format", "simple")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"?"+q.Encode(), bytes.NewReader(audio.EncodeWAV(pcm, audio.SampleRate)))
	if err != nil {
		return "", fmt.Errorf("create recognition request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", r.key)
	req.Header.Set("Content-Type", "audio/wav; codecs=audio/pcm; samplerate="+strconv.Itoa(audio.SampleRate))
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send recognition request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("speech service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out recognitionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode recognition response: %w", err)
	}

	switch out.RecognitionStatus {
	case "Success":
		text := strings.TrimSpace(out.DisplayText)
		if text == "" {
			return "", ErrNoMatch
		}
		return text, nil
	case "NoMatch", "InitialSilenceTimeout", "BabbleTimeout":
		return "", fmt.Errorf("%w: %s", ErrNoMatch, out.RecognitionStatus)
	default:
		return "", fmt.Errorf("recognition status %q", out.RecognitionStatus)
	}
}
