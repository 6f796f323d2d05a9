// Package scene defines the structured result of one image analysis.
package scene

// BoundingBox is a pixel rectangle in the analyzed frame.
type BoundingBox struct {
	X int
	Y int
	W int
	H int
}

// DetectedObject is one object reported by vision analysis.
type DetectedObject struct {
	Label      string
	Confidence float64
	Box        *BoundingBox
}

// Tag is one scene-level tag reported by vision analysis.
type Tag struct {
	Label      string
	Confidence float64
}

// TextLine is one line of text read from the frame.
type TextLine struct {
	Content string
}

// Annotation is produced once per capture and treated as read-only afterward.
type Annotation struct {
	Objects []DetectedObject
	Tags    []Tag
	Text    []TextLine
}

// ObjectLabels returns object labels in detection order.
func (a Annotation) ObjectLabels() []string {
	out := make([]string, 0, len(a.Objects))
	for _, obj := range a.Objects {
		if obj.Label == "" {
			continue
		}
		out = append(out, obj.Label)
	}
	return out
}

// TagLabels returns tag labels in detection order.
func (a Annotation) TagLabels() []string {
	out := make([]string, 0, len(a.Tags))
	for _, tag := range a.Tags {
		if tag.Label == "" {
			continue
		}
		out = append(out, tag.Label)
	}
	return out
}

// TextContents returns detected text lines in reading order.
func (a Annotation) TextContents() []string {
	out := make([]string, 0, len(a.Text))
	for _, line := range a.Text {
		if line.Content == "" {
			continue
		}
		out = append(out, line.Content)
	}
	return out
}

// Empty reports whether analysis found nothing at all.
func (a Annotation) Empty() bool {
	return len(a.ObjectLabels()) == 0 && len(a.TagLabels()) == 0 && len(a.TextContents()) == 0
}
