package hazard

import (
	"testing"

	"github.com/drishti-ai/drishti/internal/scene"
	"github.com/stretchr/testify/require"
)

var testTable = []Entry{
	{Keyword: "vehicle", Label: "वाहन"},
	{Keyword: "car", Label: "कार"},
	{Keyword: "bicycle"},
	{Keyword: "traffic", Label: "ट्रैफिक"},
	{Keyword: "stairs", Label: "सीढ़ियां"},
	{Keyword: "staircase"},
	{Keyword: "water", Label: "पानी"},
	{Keyword: "dog"},
}

func TestDetectCarAndTraffic(t *testing.T) {
	d := NewDetector(testTable)

	got := d.Detect(scene.Annotation{
		Objects: []scene.DetectedObject{{Label: "car", Confidence: 0.91}},
		Tags:    []scene.Tag{{Label: "traffic", Confidence: 0.8}},
	})

	require.Equal(t, []string{"car", "traffic"}, got.Keywords())
	require.Equal(t, []string{"कार", "ट्रैफिक"}, got.Labels())
}

func TestDetectConfiguredTranslation(t *testing.T) {
	d := NewDetector([]Entry{
		{Keyword: "vehicle", Label: "वाहन"},
		{Keyword: "car", Label: "वाहन"},
		{Keyword: "traffic", Label: "ट्रैफिक"},
	})

	got := d.Detect(scene.Annotation{
		Objects: []scene.DetectedObject{{Label: "car"}},
		Tags:    []scene.Tag{{Label: "traffic"}},
	})
	require.Equal(t, []string{"वाहन", "ट्रैफिक"}, got.Labels())
}

func TestDetectEmptyAnnotation(t *testing.T) {
	d := NewDetector(testTable)

	got := d.Detect(scene.Annotation{})
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestDetectIsIdempotent(t *testing.T) {
	d := NewDetector(testTable)
	ann := scene.Annotation{
		Objects: []scene.DetectedObject{{Label: "Dog"}, {Label: "Bicycle"}},
		Tags:    []scene.Tag{{Label: "outdoor"}, {Label: "Staircase"}},
	}

	first := d.Detect(ann)
	second := d.Detect(ann)
	require.Equal(t, first, second)
}

func TestDetectSubstringCaseInsensitiveTableOrder(t *testing.T) {
	d := NewDetector(testTable)

	got := d.Detect(scene.Annotation{
		Objects: []scene.DetectedObject{{Label: "Land vehicle"}, {Label: "Street Dog"}},
		Tags:    []scene.Tag{{Label: "stairs"}, {Label: "waterfront"}},
	})
	require.Equal(t, []string{"vehicle", "stairs", "water", "dog"}, got.Keywords())
}

func TestDetectDedupesByKeyword(t *testing.T) {
	d := NewDetector(testTable)

	got := d.Detect(scene.Annotation{
		Objects: []scene.DetectedObject{{Label: "car"}, {Label: "car"}},
		Tags:    []scene.Tag{{Label: "sports car"}},
	})
	require.Equal(t, []string{"car"}, got.Keywords())
}

func TestDetectMissingLabelFallsBackToKeyword(t *testing.T) {
	d := NewDetector([]Entry{{Keyword: " Pothole ", Label: ""}, {Keyword: "pothole", Label: "dup"}})

	got := d.Detect(scene.Annotation{Tags: []scene.Tag{{Label: "pothole"}}})
	require.Equal(t, List{{Keyword: "pothole", Label: "pothole"}}, got)
}

func TestDetectUnlabeledEntryAnnouncesKeyword(t *testing.T) {
	d := NewDetector(testTable)

	got := d.Detect(scene.Annotation{Objects: []scene.DetectedObject{{Label: "Dog"}}})
	require.Equal(t, []string{"dog"}, got.Labels())
}
