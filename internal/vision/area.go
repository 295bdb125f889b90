package vision

import "math"

// Calibration converts pixel measurements into physical area. The
// physical scan size and resolution are assumed constants configured
// per imaging device, not derived from image metadata, so the
// resulting areas are approximations.
type Calibration struct {
	PhysicalWidthCM  float64
	PhysicalHeightCM float64
	ResolutionPX     int
}

// AreaPerPixelCM2 returns the assumed physical area covered by one pixel.
// Defaults (30 cm × 30 cm over 256×256 px) yield 900/65536 cm² per pixel.
func (c Calibration) AreaPerPixelCM2() float64 {
	px := float64(c.ResolutionPX * c.ResolutionPX)
	if px == 0 {
		return 0
	}
	return c.PhysicalWidthCM * c.PhysicalHeightCM / px
}

// LesionArea estimates the total lesion area in cm² across all
// detections. Polygon segments take precedence (shoelace area); pixel
// counts are the fallback when only raster masks are available.
func LesionArea(detections []Detection, cal Calibration) float64 {
	perPixel := cal.AreaPerPixelCM2()

	total := 0.0
	for _, det := range detections {
		if det.Mask == nil {
			continue
		}
		if len(det.Mask.Segments) > 0 {
			for _, seg := range det.Mask.Segments {
				total += PolygonArea(seg) * perPixel
			}
			continue
		}
		total += float64(det.Mask.PixelCount) * perPixel
	}
	return total
}

// PolygonArea computes the shoelace-formula area of a flattened polygon
// (x0,y0,x1,y1,...) in px². Degenerate polygons (fewer than three
// vertices) have zero area.
func PolygonArea(segment []float64) float64 {
	n := len(segment) / 2
	if n < 3 {
		return 0
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		j := (i + n - 1) % n
		xi, yi := segment[2*i], segment[2*i+1]
		xj, yj := segment[2*j], segment[2*j+1]
		sum += xi*yj - xj*yi
	}
	return 0.5 * math.Abs(sum)
}
