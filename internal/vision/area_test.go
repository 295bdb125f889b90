package vision

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

var defaultCal = Calibration{PhysicalWidthCM: 30, PhysicalHeightCM: 30, ResolutionPX: 256}

func TestAreaPerPixel(t *testing.T) {
	got := defaultCal.AreaPerPixelCM2()
	assert.InDelta(t, 900.0/65536.0, got, 1e-12)
}

func TestAreaPerPixelZeroResolution(t *testing.T) {
	cal := Calibration{PhysicalWidthCM: 30, PhysicalHeightCM: 30}
	assert.Zero(t, cal.AreaPerPixelCM2())
}

func TestPolygonAreaSquare(t *testing.T) {
	// 10x10 axis-aligned square.
	square := []float64{0, 0, 10, 0, 10, 10, 0, 10}
	assert.InDelta(t, 100.0, PolygonArea(square), 1e-9)
}

func TestPolygonAreaTriangle(t *testing.T) {
	tri := []float64{0, 0, 4, 0, 0, 3}
	assert.InDelta(t, 6.0, PolygonArea(tri), 1e-9)
}

func TestPolygonAreaDegenerate(t *testing.T) {
	assert.Zero(t, PolygonArea(nil))
	assert.Zero(t, PolygonArea([]float64{1, 2}))
	assert.Zero(t, PolygonArea([]float64{1, 2, 3, 4}))
}

func TestLesionAreaFromPixelCount(t *testing.T) {
	detections := []Detection{
		{Mask: &Mask{PixelCount: 65536}},
	}
	got := LesionArea(detections, defaultCal)
	assert.InDelta(t, 900.0, got, 1e-9)
}

func TestLesionAreaSegmentsTakePrecedence(t *testing.T) {
	detections := []Detection{
		{Mask: &Mask{
			Segments:   [][]float64{{0, 0, 10, 0, 10, 10, 0, 10}},
			PixelCount: 999999, // must be ignored when segments exist
		}},
	}
	got := LesionArea(detections, defaultCal)
	want := 100.0 * defaultCal.AreaPerPixelCM2()
	assert.InDelta(t, want, got, 1e-9)
}

func TestLesionAreaSumsAcrossDetections(t *testing.T) {
	detections := []Detection{
		{Mask: &Mask{PixelCount: 100}},
		{Mask: &Mask{PixelCount: 200}},
		{Mask: nil}, // no mask contributes nothing
	}
	got := LesionArea(detections, defaultCal)
	want := 300.0 * defaultCal.AreaPerPixelCM2()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("got %v, want %v", got, want)
	}
}
