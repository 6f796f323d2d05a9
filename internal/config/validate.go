package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.Language) == "" {
		return nil, fmt.Errorf("language must not be empty")
	}

	if err := validateEndpoint("vision.endpoint", cfg.Vision.Endpoint); err != nil {
		return nil, err
	}
	if cfg.Vision.API != "v3.2" && cfg.Vision.API != "4.0" {
		return nil, fmt.Errorf("vision.api must be one of: v3.2, 4.0")
	}
	if cfg.Vision.TimeoutMS <= 0 {
		return nil, fmt.Errorf("vision.timeout_ms must be > 0")
	}
	if strings.TrimSpace(cfg.Vision.Endpoint) == "" {
		warnings = append(warnings, Warning{Message: "vision.endpoint is not set; scene analysis will fail"})
	} else if strings.TrimSpace(cfg.Vision.Key) == "" {
		warnings = append(warnings, Warning{Message: "vision key is not set; set " + EnvVisionKey})
	}

	if err := validateEndpoint("description.endpoint", cfg.Description.Endpoint); err != nil {
		return nil, err
	}
	switch cfg.Description.Backend {
	case "azure":
		if strings.TrimSpace(cfg.Description.Deployment) == "" {
			return nil, fmt.Errorf("description.deployment must not be empty when description.backend=azure")
		}
		if strings.TrimSpace(cfg.Description.Endpoint) == "" {
			warnings = append(warnings, Warning{Message: "description.endpoint is not set; description generation will fail"})
		} else if strings.TrimSpace(cfg.Description.Key) == "" {
			warnings = append(warnings, Warning{Message: "description key is not set; set " + EnvDescriptionKey})
		}
	case "ollama":
		if strings.TrimSpace(cfg.Description.Model) == "" {
			return nil, fmt.Errorf("description.model must not be empty when description.backend=ollama")
		}
	default:
		return nil, fmt.Errorf("description.backend must be one of: azure, ollama")
	}
	if cfg.Description.MaxTokens <= 0 {
		return nil, fmt.Errorf("description.max_tokens must be > 0")
	}
	if cfg.Description.Temperature < 0 || cfg.Description.Temperature > 2 {
		return nil, fmt.Errorf("description.temperature must be within [0, 2]")
	}
	if cfg.Description.MaxSentences <= 0 {
		return nil, fmt.Errorf("description.max_sentences must be > 0")
	}
	if cfg.Description.TimeoutMS <= 0 {
		return nil, fmt.Errorf("description.timeout_ms must be > 0")
	}

	if err := validateEndpoint("speech.stt_endpoint", cfg.Speech.STTEndpoint); err != nil {
		return nil, err
	}
	if err := validateEndpoint("speech.tts_endpoint", cfg.Speech.TTSEndpoint); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Speech.Voice) == "" {
		return nil, fmt.Errorf("speech.voice must not be empty")
	}
	if cfg.Speech.MaxListenMS <= 0 {
		return nil, fmt.Errorf("speech.max_listen_ms must be > 0")
	}
	if cfg.Speech.SilenceMS <= 0 {
		return nil, fmt.Errorf("speech.silence_ms must be > 0")
	}
	if cfg.Speech.TimeoutMS <= 0 {
		return nil, fmt.Errorf("speech.timeout_ms must be > 0")
	}
	if cfg.Speech.SynthTimeoutMS <= 0 {
		return nil, fmt.Errorf("speech.synth_timeout_ms must be > 0")
	}
	if cfg.Speech.Fallback.Raw != "" && !cfg.Speech.Fallback.Enabled() {
		return nil, fmt.Errorf("speech.fallback_cmd is configured but empty")
	}
	if strings.TrimSpace(cfg.Speech.Key) == "" {
		warnings = append(warnings, Warning{Message: "speech key is not set; set " + EnvSpeechKey + " (local fallback voice only)"})
	} else if strings.TrimSpace(cfg.Speech.Region) == "" &&
		(strings.TrimSpace(cfg.Speech.STTEndpoint) == "" || strings.TrimSpace(cfg.Speech.TTSEndpoint) == "") {
		warnings = append(warnings, Warning{Message: "speech.region is not set and endpoints are incomplete"})
	}

	if strings.TrimSpace(cfg.Capture.Device) == "" {
		return nil, fmt.Errorf("capture.device must not be empty")
	}
	if !cfg.Capture.Command.Enabled() {
		return nil, fmt.Errorf("capture.command must not be empty")
	}
	if !cfg.Capture.Command.Uses(DevicePlaceholder) {
		warnings = append(warnings, Warning{Message: "capture.command has no " + DevicePlaceholder + " placeholder; capture.device is not passed to it"})
	}
	if cfg.Capture.MaxDimension <= 0 {
		return nil, fmt.Errorf("capture.max_dimension must be > 0")
	}
	if cfg.Capture.JPEGQuality < 1 || cfg.Capture.JPEGQuality > 100 {
		return nil, fmt.Errorf("capture.jpeg_quality must be within [1, 100]")
	}
	if cfg.Capture.TimeoutMS <= 0 {
		return nil, fmt.Errorf("capture.timeout_ms must be > 0")
	}

	seen := make(map[string]struct{}, len(cfg.Hazards))
	for i, h := range cfg.Hazards {
		keyword := strings.ToLower(strings.TrimSpace(h.Keyword))
		if keyword == "" {
			return nil, fmt.Errorf("hazards[%d].keyword must not be empty", i)
		}
		if _, dup := seen[keyword]; dup {
			return nil, fmt.Errorf("hazards[%d].keyword %q is duplicated", i, keyword)
		}
		seen[keyword] = struct{}{}
	}
	if len(cfg.Hazards) == 0 {
		warnings = append(warnings, Warning{Message: "hazards is empty; hazard alerts are disabled"})
	}

	lists := []struct {
		name  string
		items []string
	}{
		{"commands.scan", cfg.Commands.Scan},
		{"commands.read", cfg.Commands.Read},
		{"commands.navigate", cfg.Commands.Navigate},
		{"commands.help", cfg.Commands.Help},
	}
	for _, l := range lists {
		if len(l.items) == 0 {
			return nil, fmt.Errorf("%s must not be empty", l.name)
		}
	}

	if cfg.Emergency.IntervalMS <= 0 {
		return nil, fmt.Errorf("emergency.interval_ms must be > 0")
	}
	if cfg.Emergency.NotifyCmd.Raw != "" && !cfg.Emergency.NotifyCmd.Enabled() {
		return nil, fmt.Errorf("emergency.notify_cmd is configured but empty")
	}

	switch cfg.Feedback.Haptic {
	case "auto", "sysfs", "audio", "off":
	default:
		return nil, fmt.Errorf("feedback.haptic must be one of: auto, sysfs, audio, off")
	}
	for i, ms := range cfg.Feedback.HapticPatternMS {
		if ms <= 0 {
			return nil, fmt.Errorf("feedback.haptic_pattern_ms[%d] must be > 0", i)
		}
	}
	if cfg.Feedback.Notify && strings.TrimSpace(cfg.Feedback.AppName) == "" {
		return nil, fmt.Errorf("feedback.app_name must not be empty when feedback.notify=true")
	}

	return warnings, nil
}

func validateEndpoint(field string, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", field)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host", field)
	}
	return nil
}
