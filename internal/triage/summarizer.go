// Package triage turns raw detection output and prior records into the
// textual summaries fed to the prompt composer. Nothing here returns an
// error to the caller: malformed input degrades to a fixed sentinel
// string so that a cosmetic summarization gap never aborts an otherwise
// successful diagnosis.
package triage

import (
	"fmt"
	"strings"

	"github.com/your-org/aidecare/internal/vision"
)

// Sentinel strings are contractual: callers and tests match them exactly.
const (
	// NoValidResults is returned for malformed or absent detection input.
	NoValidResults = "No valid YOLO detection results available."
	// NoObjectsDetected is returned for a well-formed empty result.
	NoObjectsDetected = "The YOLO model did not detect any objects in the scan."
)

const summaryHeader = "The YOLOv11 segmentation custom brain tumor model detected the following objects in the scan:"

// Bounding-box classification thresholds, in the same pixel-coordinate
// space as the boxes themselves.
const (
	positionLow  = 250.0
	positionHigh = 750.0

	smallMaxArea  = 10000.0
	mediumMaxArea = 50000.0
)

// Summarize converts detections into a human-readable findings summary,
// one line per detection. lesionArea is the computed physical lesion
// estimate in cm², repeated on every line.
//
// A nil slice means the detector produced no usable output at all and
// yields NoValidResults; a non-nil empty slice means the model ran and
// found nothing, yielding NoObjectsDetected. The two never collide.
func Summarize(detections []vision.Detection, lesionArea float64) string {
	if detections == nil {
		return NoValidResults
	}
	if len(detections) == 0 {
		return NoObjectsDetected
	}

	lines := []string{summaryHeader}
	for _, det := range detections {
		lines = append(lines, fmt.Sprintf(
			"- A %s %s with %.2f%% confidence located on %s and tumor size is %v.",
			sizeClass(boxArea(det.Box)),
			det.Label,
			det.Confidence*100,
			locationClass(det.Box),
			lesionArea,
		))
	}
	return strings.Join(lines, "\n")
}

func boxArea(box [4]float64) float64 {
	return (box[2] - box[0]) * (box[3] - box[1])
}

// locationClass buckets the box center into left/center/right and
// top/bottom, concatenating when both thresholds are crossed
// (e.g. "the left side of the top").
func locationClass(box [4]float64) string {
	xCenter := (box[0] + box[2]) / 2
	yCenter := (box[1] + box[3]) / 2

	location := "the center"
	if xCenter < positionLow {
		location = "the left side"
	} else if xCenter > positionHigh {
		location = "the right side"
	}

	if yCenter < positionLow {
		location += " of the top"
	} else if yCenter > positionHigh {
		location += " of the bottom"
	}

	return location
}

// sizeClass is monotonic in area against the fixed thresholds.
func sizeClass(area float64) string {
	switch {
	case area > mediumMaxArea:
		return "large"
	case area > smallMaxArea:
		return "medium-sized"
	default:
		return "small"
	}
}
