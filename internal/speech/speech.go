// Package speech recognizes voice commands and speaks responses using the
// Azure Speech REST API, with a local synthesizer as fallback.
package speech

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const maxErrorBody = 512

var (
	// ErrNotConfigured reports a missing key or endpoint.
	ErrNotConfigured = errors.New("speech service not configured")
	// ErrNoMatch reports audio that contained no recognizable speech.
	ErrNoMatch = errors.New("no speech recognized")
	// ErrPlayback reports audio that was synthesized but could not be played
	// to the end. Replaying it through another voice would repeat the text.
	ErrPlayback = errors.New("speech playback failed")
)

// Options configures the Azure Speech clients.
type Options struct {
	Region      string
	Key         string
	STTEndpoint string
	TTSEndpoint string
	Language    string
	Voice       string
	Timeout     time.Duration

	HTTPClient *http.Client
}

func (o Options) sttURL() string {
	if ep := strings.TrimRight(strings.TrimSpace(o.STTEndpoint), "/"); ep != "" {
		return ep
	}
	if o.Region == "" {
		return ""
	}
	return fmt.Sprintf("https://%s.stt.speech.microsoft.com/speech/recognition/conversation/cognitiveservices/v1", o.Region)
}

func (o Options) ttsURL() string {
	if ep := strings.TrimRight(strings.TrimSpace(o.TTSEndpoint), "/"); ep != "" {
		return ep
	}
	if o.Region == "" {
		return ""
	}
	return fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", o.Region)
}

func (o Options) client(fallback time.Duration) *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = fallback
	}
	return &http.Client{Timeout: timeout}
}
