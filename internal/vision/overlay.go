package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
)

var overlayColor = color.RGBA{R: 30, G: 110, B: 250, A: 255}

const overlayBorder = 3

// RenderOverlay draws detection boxes onto a copy of the scan and
// returns it JPEG-encoded.
func RenderOverlay(img image.Image, detections []Detection) ([]byte, error) {
	bounds := img.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, img, bounds.Min, draw.Src)

	for _, det := range detections {
		drawBox(canvas, det.Box)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode overlay: %w", err)
	}
	return buf.Bytes(), nil
}

func drawBox(canvas *image.RGBA, box [4]float64) {
	bounds := canvas.Bounds()
	x1 := clampInt(int(box[0]), bounds.Min.X, bounds.Max.X-1)
	y1 := clampInt(int(box[1]), bounds.Min.Y, bounds.Max.Y-1)
	x2 := clampInt(int(box[2]), bounds.Min.X, bounds.Max.X-1)
	y2 := clampInt(int(box[3]), bounds.Min.Y, bounds.Max.Y-1)

	for t := 0; t < overlayBorder; t++ {
		for x := x1; x <= x2; x++ {
			setPixel(canvas, x, y1+t)
			setPixel(canvas, x, y2-t)
		}
		for y := y1; y <= y2; y++ {
			setPixel(canvas, x1+t, y)
			setPixel(canvas, x2-t, y)
		}
	}
}

func setPixel(canvas *image.RGBA, x, y int) {
	if image.Pt(x, y).In(canvas.Bounds()) {
		canvas.Set(x, y, overlayColor)
	}
}
