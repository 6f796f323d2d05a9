// Package intent maps recognized utterances to assistant actions.
package intent

import "strings"

// Kind is the normalized action category of a command.
type Kind string

const (
	ScanEnvironment Kind = "scan"
	ReadText        Kind = "read"
	Navigate        Kind = "navigate"
	Emergency       Kind = "emergency"
	Unrecognized    Kind = "unrecognized"
)

// Intent is derived from one command string and never persisted.
type Intent struct {
	Kind Kind
	// Raw is the original command text.
	Raw string
}

// Keywords holds the bilingual synonym lists for each category.
type Keywords struct {
	Scan     []string
	Read     []string
	Navigate []string
	Help     []string
}

// DefaultKeywords returns the built-in Hindi and English synonyms.
func DefaultKeywords() Keywords {
	return Keywords{
		Scan:     []string{"क्या है", "what is"},
		Read:     []string{"पढ़ो", "read"},
		Navigate: []string{"रास्ता", "navigate"},
		Help:     []string{"मदद", "help"},
	}
}

type category struct {
	kind     Kind
	keywords []string
}

// Interpreter matches commands against keyword categories in fixed priority order.
type Interpreter struct {
	categories []category
}

// NewInterpreter lower-cases keywords once; priority is scan > read > navigate > help.
func NewInterpreter(kw Keywords) *Interpreter {
	return &Interpreter{categories: []category{
		{kind: ScanEnvironment, keywords: normalize(kw.Scan)},
		{kind: ReadText, keywords: normalize(kw.Read)},
		{kind: Navigate, keywords: normalize(kw.Navigate)},
		{kind: Emergency, keywords: normalize(kw.Help)},
	}}
}

// Interpret returns the first matching category, or Unrecognized carrying the raw text.
func (i *Interpreter) Interpret(text string) Intent {
	lower := strings.ToLower(text)
	for _, c := range i.categories {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return Intent{Kind: c.kind, Raw: text}
			}
		}
	}
	return Intent{Kind: Unrecognized, Raw: text}
}

// ParseKind maps a CLI/IPC action name onto an intent kind.
func ParseKind(name string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(name))) {
	case ScanEnvironment:
		return ScanEnvironment, true
	case ReadText:
		return ReadText, true
	case Navigate:
		return Navigate, true
	case Emergency:
		return Emergency, true
	default:
		return "", false
	}
}

func normalize(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		out = append(out, kw)
	}
	return out
}
