// Package config resolves, parses, validates, and defaults drishti configuration.
package config

// Config is the fully materialized runtime configuration used by drishti.
type Config struct {
	Language    string
	Vision      VisionConfig
	Description DescriptionConfig
	Speech      SpeechConfig
	Capture     CaptureConfig
	Hazards     []HazardEntry
	Commands    CommandKeywords
	Emergency   EmergencyConfig
	Feedback    FeedbackConfig
	Health      ListenConfig
	Metrics     ListenConfig
}

// VisionConfig controls the image analysis service.
type VisionConfig struct {
	Endpoint  string
	Key       string
	API       string
	Features  string
	Language  string
	TimeoutMS int
}

// DescriptionConfig controls the description generator.
type DescriptionConfig struct {
	Backend      string
	Endpoint     string
	Deployment   string
	APIVersion   string
	Key          string
	Model        string
	MaxTokens    int
	Temperature  float64
	System       string
	Language     string
	MaxSentences int
	TimeoutMS    int
}

// SpeechConfig controls recognition, synthesis, and the local fallback voice.
type SpeechConfig struct {
	Region         string
	Key            string
	STTEndpoint    string
	TTSEndpoint    string
	Voice          string
	Input          string
	Fallback       CommandConfig
	MaxListenMS    int
	SilenceMS      int
	TimeoutMS      int
	SynthTimeoutMS int
}

// CaptureConfig controls camera frame acquisition.
type CaptureConfig struct {
	Device       string
	Command      CommandConfig
	MaxDimension int
	JPEGQuality  int
	TimeoutMS    int
}

// HazardEntry maps one detection keyword to its localized label.
type HazardEntry struct {
	Keyword string
	Label   string
}

// CommandKeywords holds intent synonyms.
type CommandKeywords struct {
	Scan     []string
	Read     []string
	Navigate []string
	Help     []string
}

// EmergencyConfig controls the repeating-capture supervisor.
type EmergencyConfig struct {
	IntervalMS int
	NotifyCmd  CommandConfig
}

// FeedbackConfig controls display, audio cues, and haptics.
type FeedbackConfig struct {
	Notify          bool
	Sound           bool
	Haptic          string
	HapticPatternMS []int
	AppName         string
}

// ListenConfig is an optional listen address; empty disables the endpoint.
type ListenConfig struct {
	Listen string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
