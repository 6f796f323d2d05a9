// Package locale holds the user-facing spoken and displayed phrases.
package locale

import (
	"fmt"
	"strings"
)

// Messages is one language's phrase set.
type Messages struct {
	Welcome            string
	Listening          string
	ListenFailed       string
	CaptureFailed      string
	ProcessingFailed   string
	Busy               string
	ReadMode           string
	NavigationMode     string
	EmergencyActivated string
	MonitoringStarted  string
	MonitoringStopped  string
	AlreadyMonitoring  string

	unrecognizedFormat string
	hazardSpeechFormat string
	hazardAlertFormat  string
}

// Unrecognized echoes a command that matched no intent.
func (m Messages) Unrecognized(command string) string {
	return fmt.Sprintf(m.unrecognizedFormat, command)
}

// HazardWarning is spoken separately from the main description.
func (m Messages) HazardWarning(labels []string) string {
	return fmt.Sprintf(m.hazardSpeechFormat, strings.Join(labels, ", "))
}

// HazardAlert is the displayed alert text.
func (m Messages) HazardAlert(labels []string) string {
	return fmt.Sprintf(m.hazardAlertFormat, strings.Join(labels, ", "))
}

// For resolves a BCP-47 language tag; unknown languages use Hindi.
func For(tag string) Messages {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if strings.HasPrefix(tag, "en") {
		return english
	}
	return hindi
}

var hindi = Messages{
	Welcome:            "नमस्ते! मैं दृष्टि एआई हूं, आपका दृष्टिहीन सहायक। मैं आपके आसपास के वातावरण को समझने और बताने में मदद करूंगा।",
	Listening:          "सुन रहा हूं...",
	ListenFailed:       "मैं आपकी आवाज़ नहीं समझ पाया। कृपया फिर से बोलें।",
	CaptureFailed:      "कैमरा एक्सेस अनुमति दें। कृपया सेटिंग्स में कैमरा एक्सेस अनुमति दें।",
	ProcessingFailed:   "तस्वीर प्रोसेसिंग में समस्या आई। कृपया फिर से कोशिश करें।",
	Busy:               "मैं अभी पिछली तस्वीर देख रहा हूं। कृपया थोड़ा रुकें।",
	ReadMode:           "टेक्स्ट रीडिंग मोड। कैमरा खोल रहा हूं। कृपया टेक्स्ट को कैमरे के सामने रखें।",
	NavigationMode:     "नेविगेशन मोड शुरू। कृपया अपना गंतव्य बताएं।",
	EmergencyActivated: "आपातकालीन सहायता एक्टिवेट की गई। आपके ट्रस्टेड कॉन्टैक्ट्स को अलर्ट भेजा जा रहा है।",
	MonitoringStarted:  "आपातकालीन मोनिटरिंग शुरू। आपके आसपास के वातावरण की नियमित जांच की जा रही है।",
	MonitoringStopped:  "आपातकालीन मोनिटरिंग बंद की गई।",
	AlreadyMonitoring:  "आपातकालीन मोनिटरिंग पहले से चल रही है।",

	unrecognizedFormat: "मैंने आपकी कमांड समझी: %s. कृपया स्पष्ट रूप से बताएं कि आप क्या चाहते हैं।",
	hazardSpeechFormat: "सावधान! %s",
	hazardAlertFormat:  "सावधानी: %s",
}

var english = Messages{
	Welcome:            "Hello! I am Drishti AI, your vision assistant. I will help you understand your surroundings.",
	Listening:          "Listening...",
	ListenFailed:       "I could not understand you. Please speak again.",
	CaptureFailed:      "Please allow camera access in your settings.",
	ProcessingFailed:   "There was a problem processing the picture. Please try again.",
	Busy:               "I am still looking at the previous picture. Please wait a moment.",
	ReadMode:           "Text reading mode. Opening the camera. Please hold the text in front of the camera.",
	NavigationMode:     "Navigation mode started. Please tell me your destination.",
	EmergencyActivated: "Emergency assistance activated. Alerting your trusted contacts.",
	MonitoringStarted:  "Emergency monitoring started. Your surroundings will be checked regularly.",
	MonitoringStopped:  "Emergency monitoring stopped.",
	AlreadyMonitoring:  "Emergency monitoring is already running.",

	unrecognizedFormat: "I heard your command: %s. Please say clearly what you want.",
	hazardSpeechFormat: "Careful! %s",
	hazardAlertFormat:  "Caution: %s",
}
