// Package hazard flags risky scene elements and maps them to localized warnings.
package hazard

import (
	"strings"

	"github.com/drishti-ai/drishti/internal/scene"
)

// Entry maps one English detection keyword to its localized label.
type Entry struct {
	Keyword string
	Label   string
}

// Hazard is one detected hazard.
type Hazard struct {
	Keyword string
	Label   string
}

// List preserves first-detected (table) order. Empty means no hazard.
type List []Hazard

// Labels returns the localized labels in detection order.
func (l List) Labels() []string {
	out := make([]string, 0, len(l))
	for _, h := range l {
		out = append(out, h.Label)
	}
	return out
}

// Keywords returns the matched keywords in detection order.
func (l List) Keywords() []string {
	out := make([]string, 0, len(l))
	for _, h := range l {
		out = append(out, h.Keyword)
	}
	return out
}

// Detector holds a closed, ordered keyword table.
type Detector struct {
	table []Entry
}

// NewDetector normalizes the table; duplicate keywords keep their first position.
func NewDetector(table []Entry) *Detector {
	seen := make(map[string]struct{}, len(table))
	normalized := make([]Entry, 0, len(table))
	for _, e := range table {
		kw := strings.ToLower(strings.TrimSpace(e.Keyword))
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		normalized = append(normalized, Entry{Keyword: kw, Label: strings.TrimSpace(e.Label)})
	}
	return &Detector{table: normalized}
}

// Detect tests every keyword against lower-cased object and tag labels.
func (d *Detector) Detect(annotation scene.Annotation) List {
	detections := make([]string, 0, len(annotation.Objects)+len(annotation.Tags))
	for _, label := range annotation.ObjectLabels() {
		detections = append(detections, strings.ToLower(label))
	}
	for _, label := range annotation.TagLabels() {
		detections = append(detections, strings.ToLower(label))
	}
	if len(detections) == 0 {
		return List{}
	}

	found := List{}
	for _, e := range d.table {
		if !containsAny(detections, e.Keyword) {
			continue
		}
		label := e.Label
		if label == "" {
			label = e.Keyword
		}
		found = append(found, Hazard{Keyword: e.Keyword, Label: label})
	}
	return found
}

func containsAny(detections []string, keyword string) bool {
	for _, d := range detections {
		if strings.Contains(d, keyword) {
			return true
		}
	}
	return false
}
