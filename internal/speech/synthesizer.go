package speech

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/drishti-ai/drishti/internal/audio"
	"github.com/drishti-ai/drishti/internal/output"
)

const ttsOutputFormat = "raw-16khz-16bit-mono-pcm"

// Synthesizer speaks text through the neural voice service.
type Synthesizer struct {
	endpoint   string
	key        string
	language   string
	voice      string
	httpClient *http.Client
	player     audio.Player
}

// NewSynthesizer returns a synthesizer that plays through player.
func NewSynthesizer(opts Options, player audio.Player) *Synthesizer {
	if player == nil {
		player = audio.PulsePlayer{MediaName: "drishti speech"}
	}
	return &Synthesizer{
		endpoint:   opts.ttsURL(),
		key:        opts.Key,
		language:   opts.Language,
		voice:      opts.Voice,
		httpClient: opts.client(10 * time.Second),
		player:     player,
	}
}

// Speak synthesizes text and blocks until playback finishes.
func (s *Synthesizer) Speak(ctx context.Context, text string) error {
	pcm, err := s.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	return s.Play(ctx, pcm)
}

// Play plays PCM returned by Synthesize. Cancelling ctx stops playback.
func (s *Synthesizer) Play(ctx context.Context, pcm []byte) error {
	if err := s.player.Play(ctx, audio.Samples(pcm), audio.SampleRate); err != nil {
		return fmt.Errorf("%w: %w", ErrPlayback, err)
	}
	return nil
}

// Synthesize returns 16kHz mono s16 PCM for text.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if s.endpoint == "" || s.key == "" {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(ssml(s.language, s.voice, text)))
	if err != nil {
		return nil, fmt.Errorf("create synthesis request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", s.key)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", ttsOutputFormat)
	req.Header.Set("User-Agent", "drishti")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("speech service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read synthesized audio: %w", err)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("speech service returned no audio")
	}
	return pcm, nil
}

func ssml(language, voice, text string) string {
	var escaped bytes.Buffer
	_ = xml.EscapeText(&escaped, []byte(text))
	lang := xmlAttr(language)
	return fmt.Sprintf(
		"<speak version='1.0' xml:lang='%s'><voice xml:lang='%s' name='%s'>%s</voice></speak>",
		lang, lang, xmlAttr(voice), escaped.String(),
	)
}

func xmlAttr(v string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(v))
	return b.String()
}

// Fallback speaks through a local synthesizer command reading text on stdin.
type Fallback struct {
	argv []string
}

// NewFallback returns a fallback speaker for argv.
func NewFallback(argv []string) *Fallback {
	return &Fallback{argv: append([]string(nil), argv...)}
}

// Speak runs the local synthesizer and waits for it to exit.
func (f *Fallback) Speak(ctx context.Context, text string) error {
	if len(f.argv) == 0 {
		return fmt.Errorf("fallback synthesizer not configured")
	}
	return output.RunWithInput(ctx, f.argv, text)
}
