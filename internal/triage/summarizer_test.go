package triage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/your-org/aidecare/internal/vision"
)

func TestSummarizeNilInput(t *testing.T) {
	assert.Equal(t, NoValidResults, Summarize(nil, 0))
}

func TestSummarizeEmptyInput(t *testing.T) {
	assert.Equal(t, NoObjectsDetected, Summarize([]vision.Detection{}, 0))
}

func TestSummarizeSingleDetection(t *testing.T) {
	// Box 100x100 at the top-left: area 10000 (small), center (150, 150).
	detections := []vision.Detection{
		{Box: [4]float64{100, 100, 200, 200}, Label: "meningioma", Confidence: 0.87},
	}

	got := Summarize(detections, 2.3)
	lines := strings.Split(got, "\n")

	assert.Len(t, lines, 2)
	assert.Equal(t, summaryHeader, lines[0])
	assert.Equal(t,
		"- A small meningioma with 87.00% confidence located on the left side of the top and tumor size is 2.3.",
		lines[1])
}

func TestSummarizeOneLinePerDetection(t *testing.T) {
	detections := []vision.Detection{
		{Box: [4]float64{100, 100, 200, 200}, Label: "glioma", Confidence: 0.9},
		{Box: [4]float64{400, 400, 600, 600}, Label: "pituitary", Confidence: 0.5},
		{Box: [4]float64{800, 800, 999, 999}, Label: "meningioma", Confidence: 0.75},
	}

	got := Summarize(detections, 1.5)
	lines := strings.Split(got, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header plus 3 lines, got %d", len(lines))
	}
	for _, line := range lines[1:] {
		assert.True(t, strings.HasPrefix(line, "- A "), "line %q", line)
	}
}

func TestSizeClassMonotonic(t *testing.T) {
	cases := []struct {
		area float64
		want string
	}{
		{0, "small"},
		{10000, "small"},
		{10001, "medium-sized"},
		{50000, "medium-sized"},
		{50001, "large"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, sizeClass(tc.area), "area %v", tc.area)
	}
}

func TestLocationClass(t *testing.T) {
	cases := []struct {
		box  [4]float64
		want string
	}{
		{[4]float64{0, 400, 400, 600}, "the left side"},       // center (200, 500)
		{[4]float64{800, 400, 999, 600}, "the right side"},    // center (~900, 500)
		{[4]float64{400, 400, 600, 600}, "the center"},        // center (500, 500)
		{[4]float64{400, 0, 600, 400}, "the center of the top"},
		{[4]float64{400, 800, 600, 999}, "the center of the bottom"},
		{[4]float64{800, 800, 999, 999}, "the right side of the bottom"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, locationClass(tc.box))
	}
}

func TestBoundaryValuesAreNotExtremes(t *testing.T) {
	// Centers sitting exactly on a threshold stay in the middle bucket.
	box := [4]float64{0, 0, 500, 500} // center (250, 250)
	assert.Equal(t, "the center", locationClass(box))
}
