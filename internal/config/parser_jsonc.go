package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Language    *string           `json:"language"`
	Vision      *jsoncVision      `json:"vision"`
	Description *jsoncDescription `json:"description"`
	Speech      *jsoncSpeech      `json:"speech"`
	Capture     *jsoncCapture     `json:"capture"`
	Hazards     []jsoncHazard     `json:"hazards"`
	Commands    *jsoncCommands    `json:"commands"`
	Emergency   *jsoncEmergency   `json:"emergency"`
	Feedback    *jsoncFeedback    `json:"feedback"`
	Health      *jsoncListen      `json:"health"`
	Metrics     *jsoncListen      `json:"metrics"`
}

type jsoncVision struct {
	Endpoint  *string `json:"endpoint"`
	Key       *string `json:"key"`
	API       *string `json:"api"`
	Features  *string `json:"features"`
	Language  *string `json:"language"`
	TimeoutMS *int    `json:"timeout_ms"`
}

type jsoncDescription struct {
	Backend      *string  `json:"backend"`
	Endpoint     *string  `json:"endpoint"`
	Deployment   *string  `json:"deployment"`
	APIVersion   *string  `json:"api_version"`
	Key          *string  `json:"key"`
	Model        *string  `json:"model"`
	MaxTokens    *int     `json:"max_tokens"`
	Temperature  *float64 `json:"temperature"`
	System       *string  `json:"system"`
	Language     *string  `json:"language"`
	MaxSentences *int     `json:"max_sentences"`
	TimeoutMS    *int     `json:"timeout_ms"`
}

type jsoncSpeech struct {
	Region         *string `json:"region"`
	Key            *string `json:"key"`
	STTEndpoint    *string `json:"stt_endpoint"`
	TTSEndpoint    *string `json:"tts_endpoint"`
	Voice          *string `json:"voice"`
	Input          *string `json:"input"`
	FallbackCmd    *string `json:"fallback_cmd"`
	MaxListenMS    *int    `json:"max_listen_ms"`
	SilenceMS      *int    `json:"silence_ms"`
	TimeoutMS      *int    `json:"timeout_ms"`
	SynthTimeoutMS *int    `json:"synth_timeout_ms"`
}

type jsoncCapture struct {
	Device       *string `json:"device"`
	Command      *string `json:"command"`
	MaxDimension *int    `json:"max_dimension"`
	JPEGQuality  *int    `json:"jpeg_quality"`
	TimeoutMS    *int    `json:"timeout_ms"`
}

type jsoncHazard struct {
	Keyword string `json:"keyword"`
	Label   string `json:"label"`
}

type jsoncCommands struct {
	Scan     *jsoncStringList `json:"scan"`
	Read     *jsoncStringList `json:"read"`
	Navigate *jsoncStringList `json:"navigate"`
	Help     *jsoncStringList `json:"help"`
}

type jsoncEmergency struct {
	IntervalMS *int    `json:"interval_ms"`
	NotifyCmd  *string `json:"notify_cmd"`
}

type jsoncFeedback struct {
	Notify          *bool   `json:"notify"`
	Sound           *bool   `json:"sound"`
	Haptic          *string `json:"haptic"`
	HapticPatternMS []int   `json:"haptic_pattern_ms"`
	AppName         *string `json:"app_name"`
}

type jsoncListen struct {
	Listen *string `json:"listen"`
}

type jsoncStringList []string

func (l *jsoncStringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		parts := strings.Split(single, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			out = append(out, part)
		}
		*l = out
		return nil
	}

	return fmt.Errorf("expected string array or comma-delimited string")
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}
	applyEnv(&cfg)

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if payload.Language != nil {
		cfg.Language = strings.TrimSpace(*payload.Language)
	}

	if v := payload.Vision; v != nil {
		setString(&cfg.Vision.Endpoint, v.Endpoint)
		setString(&cfg.Vision.Key, v.Key)
		setString(&cfg.Vision.API, v.API)
		setString(&cfg.Vision.Features, v.Features)
		setString(&cfg.Vision.Language, v.Language)
		setInt(&cfg.Vision.TimeoutMS, v.TimeoutMS)
		if v.Key != nil && strings.TrimSpace(*v.Key) != "" {
			warnings = append(warnings, Warning{Message: "vision.key is stored in the config file; prefer " + EnvVisionKey})
		}
	}

	if d := payload.Description; d != nil {
		setString(&cfg.Description.Backend, d.Backend)
		setString(&cfg.Description.Endpoint, d.Endpoint)
		setString(&cfg.Description.Deployment, d.Deployment)
		setString(&cfg.Description.APIVersion, d.APIVersion)
		setString(&cfg.Description.Key, d.Key)
		setString(&cfg.Description.Model, d.Model)
		setInt(&cfg.Description.MaxTokens, d.MaxTokens)
		if d.Temperature != nil {
			cfg.Description.Temperature = *d.Temperature
		}
		if d.System != nil {
			cfg.Description.System = *d.System
		}
		setString(&cfg.Description.Language, d.Language)
		setInt(&cfg.Description.MaxSentences, d.MaxSentences)
		setInt(&cfg.Description.TimeoutMS, d.TimeoutMS)
		if d.Key != nil && strings.TrimSpace(*d.Key) != "" {
			warnings = append(warnings, Warning{Message: "description.key is stored in the config file; prefer " + EnvDescriptionKey})
		}
	}

	if s := payload.Speech; s != nil {
		setString(&cfg.Speech.Region, s.Region)
		setString(&cfg.Speech.Key, s.Key)
		setString(&cfg.Speech.STTEndpoint, s.STTEndpoint)
		setString(&cfg.Speech.TTSEndpoint, s.TTSEndpoint)
		setString(&cfg.Speech.Voice, s.Voice)
		setString(&cfg.Speech.Input, s.Input)
		setInt(&cfg.Speech.MaxListenMS, s.MaxListenMS)
		setInt(&cfg.Speech.SilenceMS, s.SilenceMS)
		setInt(&cfg.Speech.TimeoutMS, s.TimeoutMS)
		setInt(&cfg.Speech.SynthTimeoutMS, s.SynthTimeoutMS)
		if s.FallbackCmd != nil {
			cmd, err := ParseCommand(*s.FallbackCmd)
			if err != nil {
				return nil, fmt.Errorf("invalid speech.fallback_cmd: %w", err)
			}
			cfg.Speech.Fallback = cmd
		}
		if s.Key != nil && strings.TrimSpace(*s.Key) != "" {
			warnings = append(warnings, Warning{Message: "speech.key is stored in the config file; prefer " + EnvSpeechKey})
		}
	}

	if c := payload.Capture; c != nil {
		setString(&cfg.Capture.Device, c.Device)
		setInt(&cfg.Capture.MaxDimension, c.MaxDimension)
		setInt(&cfg.Capture.JPEGQuality, c.JPEGQuality)
		setInt(&cfg.Capture.TimeoutMS, c.TimeoutMS)
		if c.Command != nil {
			cmd, err := ParseCommand(*c.Command)
			if err != nil {
				return nil, fmt.Errorf("invalid capture.command: %w", err)
			}
			cfg.Capture.Command = cmd
		}
	}

	if payload.Hazards != nil {
		cfg.Hazards = make([]HazardEntry, 0, len(payload.Hazards))
		for _, h := range payload.Hazards {
			cfg.Hazards = append(cfg.Hazards, HazardEntry{
				Keyword: strings.ToLower(strings.TrimSpace(h.Keyword)),
				Label:   strings.TrimSpace(h.Label),
			})
		}
	}

	if c := payload.Commands; c != nil {
		setList(&cfg.Commands.Scan, c.Scan)
		setList(&cfg.Commands.Read, c.Read)
		setList(&cfg.Commands.Navigate, c.Navigate)
		setList(&cfg.Commands.Help, c.Help)
	}

	if e := payload.Emergency; e != nil {
		setInt(&cfg.Emergency.IntervalMS, e.IntervalMS)
		if e.NotifyCmd != nil {
			cmd, err := ParseCommand(*e.NotifyCmd)
			if err != nil {
				return nil, fmt.Errorf("invalid emergency.notify_cmd: %w", err)
			}
			cfg.Emergency.NotifyCmd = cmd
		}
	}

	if f := payload.Feedback; f != nil {
		if f.Notify != nil {
			cfg.Feedback.Notify = *f.Notify
		}
		if f.Sound != nil {
			cfg.Feedback.Sound = *f.Sound
		}
		if f.Haptic != nil {
			cfg.Feedback.Haptic = strings.ToLower(strings.TrimSpace(*f.Haptic))
		}
		if f.HapticPatternMS != nil {
			cfg.Feedback.HapticPatternMS = append([]int(nil), f.HapticPatternMS...)
		}
		setString(&cfg.Feedback.AppName, f.AppName)
	}

	if payload.Health != nil {
		setString(&cfg.Health.Listen, payload.Health.Listen)
	}
	if payload.Metrics != nil {
		setString(&cfg.Metrics.Listen, payload.Metrics.Listen)
	}

	return warnings, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setList(dst *[]string, v *jsoncStringList) {
	if v == nil {
		return
	}
	out := make([]string, 0, len(*v))
	for _, item := range *v {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	*dst = out
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
