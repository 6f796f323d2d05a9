// Package compose builds description-generation requests from scene annotations.
package compose

import (
	"fmt"
	"strings"

	"github.com/drishti-ai/drishti/internal/scene"
)

// DefaultSystemInstruction is sent with every generation request.
const DefaultSystemInstruction = "You are Drishti AI, a helpful assistant for blind users in India. " +
	"Provide clear, concise safety-first descriptions in Hindi. " +
	"Focus on immediate environment, hazards, and actionable guidance."

const emptyList = "none"

// Request is the derived generation input for one annotation.
type Request struct {
	System string
	Prompt string
}

// Composer renders annotations into prompts. The zero value is not usable; see New.
type Composer struct {
	system      string
	language    string
	maxSentence int
}

// New returns a composer; blank arguments fall back to built-in defaults.
func New(system string, language string, maxSentences int) *Composer {
	system = strings.TrimSpace(system)
	if system == "" {
		system = DefaultSystemInstruction
	}
	language = strings.TrimSpace(language)
	if language == "" {
		language = "Hindi"
	}
	if maxSentences <= 0 {
		maxSentences = 3
	}
	return &Composer{system: system, language: language, maxSentence: maxSentences}
}

// Compose is deterministic and never returns an empty prompt.
func (c *Composer) Compose(annotation scene.Annotation) Request {
	var b strings.Builder

	b.WriteString("Based on this scene analysis:\n")
	fmt.Fprintf(&b, "Objects detected: %s\n", joinOrNone(annotation.ObjectLabels()))
	fmt.Fprintf(&b, "Tags: %s\n", joinOrNone(annotation.TagLabels()))
	fmt.Fprintf(&b, "Text found: %s\n", joinOrNone(annotation.TextContents()))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Provide a %s audio description for a blind user. Include, in this order:\n", c.language)
	b.WriteString("1. Main objects in the scene\n")
	b.WriteString("2. Any potential hazards\n")
	b.WriteString("3. Distance estimates if available\n")
	b.WriteString("4. Navigation guidance\n")
	b.WriteString("5. Important text that should be read\n")
	if annotation.Empty() {
		b.WriteString("\nNothing was detected. Tell the user the scene could not be identified clearly ")
		b.WriteString("and suggest pointing the camera again with better light.\n")
	}
	fmt.Fprintf(&b, "\nKeep it under %d sentences. Speak naturally.", c.maxSentence)

	return Request{System: c.system, Prompt: b.String()}
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return emptyList
	}
	return strings.Join(items, ", ")
}
