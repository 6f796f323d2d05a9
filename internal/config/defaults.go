package config

const (
	defaultCaptureCmd  = "ffmpeg -hide_banner -loglevel error -f v4l2 -video_size 1280x720 -i {device} -frames:v 1 -f image2pipe -vcodec mjpeg -"
	defaultFallbackCmd = "espeak-ng -v hi -s 150 --stdin"
)

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Language: "hi-IN",
		Vision: VisionConfig{
			API:       "4.0",
			Features:  "Objects,Tags,Description",
			Language:  "en",
			TimeoutMS: 8000,
		},
		Description: DescriptionConfig{
			Backend:      "azure",
			Deployment:   "gpt-4",
			APIVersion:   "2024-02-01",
			Model:        "llama3.2",
			MaxTokens:    200,
			Temperature:  0.7,
			Language:     "Hindi",
			MaxSentences: 3,
			TimeoutMS:    15000,
		},
		Speech: SpeechConfig{
			Voice:          "hi-IN-SwaraNeural",
			Input:          "default",
			Fallback:       mustCommand(defaultFallbackCmd),
			MaxListenMS:    6000,
			SilenceMS:      900,
			TimeoutMS:      8000,
			SynthTimeoutMS: 10000,
		},
		Capture: CaptureConfig{
			Device:       "/dev/video0",
			Command:      mustCommand(defaultCaptureCmd),
			MaxDimension: 1280,
			JPEGQuality:  80,
			TimeoutMS:    5000,
		},
		Hazards: DefaultHazards(),
		Commands: CommandKeywords{
			Scan:     []string{"क्या है", "what is"},
			Read:     []string{"पढ़ो", "read"},
			Navigate: []string{"रास्ता", "navigate"},
			Help:     []string{"मदद", "help"},
		},
		Emergency: EmergencyConfig{IntervalMS: 10000},
		Feedback: FeedbackConfig{
			Notify:          true,
			Sound:           true,
			Haptic:          "auto",
			HapticPatternMS: []int{100, 50, 100},
			AppName:         "Drishti",
		},
	}
}

// DefaultHazards is the built-in hazard table. Entries without a Hindi
// label are announced by keyword.
func DefaultHazards() []HazardEntry {
	return []HazardEntry{
		{Keyword: "vehicle", Label: "वाहन"},
		{Keyword: "car", Label: "कार"},
		{Keyword: "bus", Label: "बस"},
		{Keyword: "motorcycle"},
		{Keyword: "bicycle"},
		{Keyword: "traffic", Label: "ट्रैफिक"},
		{Keyword: "stairs", Label: "सीढ़ियां"},
		{Keyword: "step", Label: "कदम"},
		{Keyword: "staircase"},
		{Keyword: "hole", Label: "गड्ढा"},
		{Keyword: "ditch"},
		{Keyword: "drain"},
		{Keyword: "water", Label: "पानी"},
		{Keyword: "puddle"},
		{Keyword: "animal", Label: "जानवर"},
		{Keyword: "dog"},
		{Keyword: "crowd", Label: "भीड़"},
	}
}
