package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"sort"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Detection is one model-identified region of interest.
type Detection struct {
	Box        [4]float64 `json:"box"` // x1, y1, x2, y2 (pixel coordinates)
	Label      string     `json:"label"`
	Confidence float64    `json:"confidence"`
	Mask       *Mask      `json:"mask,omitempty"`
}

// Mask describes the segmented region of a detection. Segments are
// flattened polygons (x0,y0,x1,y1,...); PixelCount is the number of
// positive mask pixels in the calibration resolution grid.
type Mask struct {
	Segments   [][]float64 `json:"segments,omitempty"`
	PixelCount int         `json:"pixel_count,omitempty"`
}

// Result is the output of one detection run.
type Result struct {
	Detections []Detection
	Overlay    []byte // rendered overlay image, JPEG
	Width      int
	Height     int
}

// Service locates candidate regions in a scan image. Implementations
// must be stateless between invocations: concurrent requests from
// different users share one Service instance.
type Service interface {
	Detect(ctx context.Context, imageData []byte) (*Result, error)
}

const (
	inputSize  = 640
	protoSize  = 160
	numCoords  = 4
	numMaskCos = 32
	numAnchors = 8400
)

// YOLODetector runs a YOLO segmentation model via ONNX Runtime.
// All per-request state lives on the stack; the shared tensors are
// guarded by a mutex.
type YOLODetector struct {
	mu          sync.Mutex
	session     *ort.AdvancedSession
	inputTensor *ort.Tensor[float32]
	boxTensor   *ort.Tensor[float32]
	protoTensor *ort.Tensor[float32]

	classNames    []string
	confThreshold float32
	iouThreshold  float32
	resolutionPX  int
}

// NewYOLODetector loads the segmentation model. opts may be nil for
// ONNX Runtime defaults.
func NewYOLODetector(modelPath string, classNames []string, confThreshold, iouThreshold float64, resolutionPX int, opts *ort.SessionOptions) (*YOLODetector, error) {
	inputShape := ort.NewShape(1, 3, inputSize, inputSize)
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	// YOLO segmentation output shapes:
	// output0: [1, 4+nc+32, 8400] — box, class scores, mask coefficients
	// output1: [1, 32, 160, 160]  — mask prototypes
	boxShape := ort.NewShape(1, int64(numCoords+len(classNames)+numMaskCos), numAnchors)
	boxTensor, err := ort.NewEmptyTensor[float32](boxShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create box tensor: %w", err)
	}

	protoShape := ort.NewShape(1, numMaskCos, protoSize, protoSize)
	protoTensor, err := ort.NewEmptyTensor[float32](protoShape)
	if err != nil {
		inputTensor.Destroy()
		boxTensor.Destroy()
		return nil, fmt.Errorf("create proto tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"images"},
		[]string{"output0", "output1"},
		[]ort.Value{inputTensor},
		[]ort.Value{boxTensor, protoTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		boxTensor.Destroy()
		protoTensor.Destroy()
		return nil, fmt.Errorf("create detector session: %w", err)
	}

	return &YOLODetector{
		session:       session,
		inputTensor:   inputTensor,
		boxTensor:     boxTensor,
		protoTensor:   protoTensor,
		classNames:    classNames,
		confThreshold: float32(confThreshold),
		iouThreshold:  float32(iouThreshold),
		resolutionPX:  resolutionPX,
	}, nil
}

// Detect runs the model on an encoded image and returns detections with
// masks plus a rendered overlay.
func (d *YOLODetector) Detect(ctx context.Context, imageData []byte) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	origW := bounds.Dx()
	origH := bounds.Dy()

	input := imageToFloat32CHW(img, inputSize, inputSize)

	d.mu.Lock()
	copy(d.inputTensor.GetData(), input)
	if err := d.session.Run(); err != nil {
		d.mu.Unlock()
		return nil, fmt.Errorf("run detection: %w", err)
	}

	candidates := d.parseCandidates(origW, origH)
	candidates = nms(candidates, d.iouThreshold)

	for i := range candidates {
		count := d.maskPixelCount(candidates[i])
		if count > 0 {
			candidates[i].det.Mask = &Mask{PixelCount: count}
		}
	}
	d.mu.Unlock()

	detections := make([]Detection, 0, len(candidates))
	for _, c := range candidates {
		detections = append(detections, c.det)
	}

	overlay, err := RenderOverlay(img, detections)
	if err != nil {
		return nil, fmt.Errorf("render overlay: %w", err)
	}

	return &Result{
		Detections: detections,
		Overlay:    overlay,
		Width:      origW,
		Height:     origH,
	}, nil
}

// candidate carries per-detection mask coefficients through NMS.
type candidate struct {
	det    Detection
	coeffs [numMaskCos]float32
	// box in model input coordinates, for mask lookup
	inBox [4]float32
}

// parseCandidates decodes the [1, 4+nc+32, 8400] output. Values are laid
// out attribute-major: all cx, then all cy, and so on.
func (d *YOLODetector) parseCandidates(origW, origH int) []candidate {
	data := d.boxTensor.GetData()
	nc := len(d.classNames)
	stride := numAnchors

	scaleW := float64(origW) / float64(inputSize)
	scaleH := float64(origH) / float64(inputSize)

	var out []candidate
	for i := 0; i < numAnchors; i++ {
		bestScore := float32(0)
		bestClass := 0
		for c := 0; c < nc; c++ {
			s := data[(numCoords+c)*stride+i]
			if s > bestScore {
				bestScore = s
				bestClass = c
			}
		}
		if bestScore < d.confThreshold {
			continue
		}

		cx := data[0*stride+i]
		cy := data[1*stride+i]
		w := data[2*stride+i]
		h := data[3*stride+i]

		x1 := cx - w/2
		y1 := cy - h/2
		x2 := cx + w/2
		y2 := cy + h/2

		c := candidate{
			det: Detection{
				Box: [4]float64{
					clamp(float64(x1)*scaleW, 0, float64(origW)),
					clamp(float64(y1)*scaleH, 0, float64(origH)),
					clamp(float64(x2)*scaleW, 0, float64(origW)),
					clamp(float64(y2)*scaleH, 0, float64(origH)),
				},
				Label:      d.classNames[bestClass],
				Confidence: float64(bestScore),
			},
			inBox: [4]float32{x1, y1, x2, y2},
		}
		for m := 0; m < numMaskCos; m++ {
			c.coeffs[m] = data[(numCoords+nc+m)*stride+i]
		}
		out = append(out, c)
	}
	return out
}

// maskPixelCount combines the prototype masks with a detection's
// coefficients and counts positive pixels inside its box, rescaled to
// the calibration resolution grid.
func (d *YOLODetector) maskPixelCount(c candidate) int {
	proto := d.protoTensor.GetData() // [32, 160, 160]

	// Box in prototype coordinates.
	px1 := int(c.inBox[0] * protoSize / inputSize)
	py1 := int(c.inBox[1] * protoSize / inputSize)
	px2 := int(math.Ceil(float64(c.inBox[2]) * protoSize / inputSize))
	py2 := int(math.Ceil(float64(c.inBox[3]) * protoSize / inputSize))

	px1 = clampInt(px1, 0, protoSize)
	py1 = clampInt(py1, 0, protoSize)
	px2 = clampInt(px2, 0, protoSize)
	py2 = clampInt(py2, 0, protoSize)

	count := 0
	for y := py1; y < py2; y++ {
		for x := px1; x < px2; x++ {
			var v float32
			for m := 0; m < numMaskCos; m++ {
				v += c.coeffs[m] * proto[m*protoSize*protoSize+y*protoSize+x]
			}
			// sigmoid(v) > 0.5 iff v > 0
			if v > 0 {
				count++
			}
		}
	}

	// Rescale count from the prototype grid to the calibration grid.
	scale := float64(d.resolutionPX) / float64(protoSize)
	return int(float64(count) * scale * scale)
}

func (d *YOLODetector) Close() {
	if d.session != nil {
		d.session.Destroy()
	}
	if d.inputTensor != nil {
		d.inputTensor.Destroy()
	}
	if d.boxTensor != nil {
		d.boxTensor.Destroy()
	}
	if d.protoTensor != nil {
		d.protoTensor.Destroy()
	}
}

// nms performs Non-Maximum Suppression on candidates.
func nms(cands []candidate, iouThreshold float32) []candidate {
	if len(cands) == 0 {
		return cands
	}

	sort.Slice(cands, func(i, j int) bool {
		return cands[i].det.Confidence > cands[j].det.Confidence
	})

	keep := make([]bool, len(cands))
	for i := range keep {
		keep[i] = true
	}

	for i := 0; i < len(cands); i++ {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < len(cands); j++ {
			if !keep[j] {
				continue
			}
			if iou(cands[i].det.Box, cands[j].det.Box) > float64(iouThreshold) {
				keep[j] = false
			}
		}
	}

	var result []candidate
	for i, c := range cands {
		if keep[i] {
			result = append(result, c)
		}
	}
	return result
}

func iou(a, b [4]float64) float64 {
	x1 := math.Max(a[0], b[0])
	y1 := math.Max(a[1], b[1])
	x2 := math.Min(a[2], b[2])
	y2 := math.Min(a[3], b[3])

	intersection := math.Max(0, x2-x1) * math.Max(0, y2-y1)

	areaA := (a[2] - a[0]) * (a[3] - a[1])
	areaB := (b[2] - b[0]) * (b[3] - b[1])
	union := areaA + areaB - intersection

	if union <= 0 {
		return 0
	}
	return intersection / union
}

// imageToFloat32CHW converts an image to CHW float32 format scaled to [0,1].
func imageToFloat32CHW(img image.Image, targetW, targetH int) []float32 {
	resized := resizeImage(img, targetW, targetH)
	bounds := resized.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	data := make([]float32, 3*h*w)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := resized.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()

			idx := y*w + x
			data[0*h*w+idx] = float32(r>>8) / 255.0
			data[1*h*w+idx] = float32(g>>8) / 255.0
			data[2*h*w+idx] = float32(b>>8) / 255.0
		}
	}

	return data
}

// resizeImage performs nearest-neighbour resize (fast, good enough for ML input).
func resizeImage(img image.Image, targetW, targetH int) image.Image {
	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))

	for y := 0; y < targetH; y++ {
		for x := 0; x < targetW; x++ {
			srcX := bounds.Min.X + x*srcW/targetW
			srcY := bounds.Min.Y + y*srcH/targetH
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}

	return dst
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
