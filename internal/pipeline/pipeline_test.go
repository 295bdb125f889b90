package pipeline

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/your-org/aidecare/internal/llm"
	"github.com/your-org/aidecare/internal/models"
	"github.com/your-org/aidecare/internal/vision"
)

// --- fakes ---

type fakeDetector struct {
	result *vision.Result
	err    error
	calls  int
}

func (f *fakeDetector) Detect(ctx context.Context, imageData []byte) (*vision.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeGenerator struct {
	response string
	err      error
	prompts  []string
	images   [][][]byte
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, images [][]byte) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.images = append(f.images, images)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeGenerator) Chat(ctx context.Context, prompt, role string, history []llm.Turn) (string, error) {
	return f.response, f.err
}

type fakeStore struct {
	patient   *models.Patient
	history   []models.ScanRecord
	created   []*models.ScanRecord
	createErr error
}

func (f *fakeStore) GetPatient(ctx context.Context, id uuid.UUID) (*models.Patient, error) {
	return f.patient, nil
}

func (f *fakeStore) CreateScanRecord(ctx context.Context, r *models.ScanRecord) error {
	if f.createErr != nil {
		return f.createErr
	}
	r.ID = uuid.New()
	r.CreatedAt = time.Now().UTC()
	f.created = append(f.created, r)
	return nil
}

func (f *fakeStore) ListScanHistory(ctx context.Context, patientID uuid.UUID) ([]models.ScanRecord, error) {
	return f.history, nil
}

type fakeImages struct {
	objects map[string][]byte
	putErr  error
}

func (f *fakeImages) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = data
	return nil
}

type fakePublisher struct {
	events []interface{}
}

func (f *fakePublisher) PublishScanCompleted(ctx context.Context, data interface{}) error {
	f.events = append(f.events, data)
	return nil
}

// --- helpers ---

var testCal = vision.Calibration{PhysicalWidthCM: 30, PhysicalHeightCM: 30, ResolutionPX: 256}

func testResult() *vision.Result {
	return &vision.Result{
		Detections: []vision.Detection{
			{
				Box:        [4]float64{100, 100, 200, 200},
				Label:      "meningioma",
				Confidence: 0.87,
				Mask:       &vision.Mask{PixelCount: 150},
			},
		},
		Overlay: []byte("overlay-jpeg"),
		Width:   1024,
		Height:  1024,
	}
}

func testInput() Input {
	return Input{
		PatientID:     uuid.New(),
		Filename:      "scan.jpg",
		ContentType:   "image/jpeg",
		ImageData:     []byte("image-bytes"),
		ScanDate:      time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		ScanType:      "MRI",
		SymptomsNotes: "headaches",
	}
}

func testFixture(detector *fakeDetector, generator *fakeGenerator) (*Pipeline, *fakeStore, *fakeImages, *fakePublisher) {
	store := &fakeStore{patient: &models.Patient{ID: uuid.New(), FirstName: "Ada", LastName: "Lovelace"}}
	images := &fakeImages{}
	publisher := &fakePublisher{}
	return New(detector, generator, store, images, publisher, testCal), store, images, publisher
}

// --- tests ---

func TestRunSuccessPersistsRecord(t *testing.T) {
	detector := &fakeDetector{result: testResult()}
	generator := &fakeGenerator{response: "clinical narrative"}
	pl, store, images, publisher := testFixture(detector, generator)

	out, err := pl.Run(context.Background(), testInput())
	assert.NoError(t, err)

	assert.Len(t, store.created, 1)
	record := store.created[0]
	assert.Equal(t, "clinical narrative", record.Narrative)
	assert.Contains(t, record.FindingSummary, "meningioma")
	assert.NotEmpty(t, record.ImageKey)
	assert.NotEmpty(t, record.OverlayKey)
	assert.InDelta(t, 150.0*testCal.AreaPerPixelCM2(), record.LesionAreaCM2, 1e-9)

	// Original and overlay both stored.
	assert.Len(t, images.objects, 2)

	assert.Len(t, publisher.events, 1)
	event := publisher.events[0].(models.ScanEvent)
	assert.Equal(t, record.ID, event.ScanID)

	assert.NotEmpty(t, out.PatientPrompt)
	assert.Contains(t, out.PatientPrompt, "Ada")
}

func TestRunInferenceReceivesBothImages(t *testing.T) {
	detector := &fakeDetector{result: testResult()}
	generator := &fakeGenerator{response: "narrative"}
	pl, _, _, _ := testFixture(detector, generator)

	in := testInput()
	_, err := pl.Run(context.Background(), in)
	assert.NoError(t, err)

	// The composed prompts describe two images: the original scan and
	// the annotated render, in that order.
	assert.Len(t, generator.images, 1)
	images := generator.images[0]
	assert.Len(t, images, 2)
	assert.Equal(t, in.ImageData, images[0])
	assert.Equal(t, testResult().Overlay, images[1])
}

func TestRunEmptyDetectionsAbortsWithoutRecord(t *testing.T) {
	detector := &fakeDetector{result: &vision.Result{Detections: []vision.Detection{}}}
	generator := &fakeGenerator{response: "should never run"}
	pl, store, _, publisher := testFixture(detector, generator)

	_, err := pl.Run(context.Background(), testInput())

	var perr *Error
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, KindDetection, perr.Kind)
	assert.Empty(t, store.created, "no record on empty detection")
	assert.Empty(t, generator.prompts, "inference must not run")
	assert.Empty(t, publisher.events)
}

func TestRunDetectorFailureAbortsWithoutRecord(t *testing.T) {
	detector := &fakeDetector{err: errors.New("model exploded")}
	generator := &fakeGenerator{}
	pl, store, _, _ := testFixture(detector, generator)

	_, err := pl.Run(context.Background(), testInput())

	var perr *Error
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, KindDetection, perr.Kind)
	assert.Empty(t, store.created)
}

func TestRunInferenceTransportFailure(t *testing.T) {
	detector := &fakeDetector{result: testResult()}
	generator := &fakeGenerator{err: &llm.TransportError{Err: &net.OpError{Op: "dial"}}}
	pl, store, _, _ := testFixture(detector, generator)

	_, err := pl.Run(context.Background(), testInput())

	var perr *Error
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, KindInferenceTransport, perr.Kind)
	assert.Equal(t, llm.UserMsgUnreachable, perr.UserMessage)
	assert.Empty(t, store.created, "no record on inference failure")
}

func TestRunInferenceServiceFailure(t *testing.T) {
	detector := &fakeDetector{result: testResult()}
	generator := &fakeGenerator{err: &llm.ServiceError{Status: 500}}
	pl, store, _, _ := testFixture(detector, generator)

	_, err := pl.Run(context.Background(), testInput())

	var perr *Error
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, KindInferenceService, perr.Kind)
	assert.Equal(t, llm.UserMsgService, perr.UserMessage)
	assert.Empty(t, store.created)
}

func TestRunEmptyNarrativeRejected(t *testing.T) {
	detector := &fakeDetector{result: testResult()}
	generator := &fakeGenerator{response: ""}
	pl, store, _, _ := testFixture(detector, generator)

	_, err := pl.Run(context.Background(), testInput())

	var perr *Error
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, KindInferenceService, perr.Kind)
	assert.Empty(t, store.created)
}

func TestRunValidation(t *testing.T) {
	pl, _, _, _ := testFixture(&fakeDetector{}, &fakeGenerator{})

	in := testInput()
	in.ImageData = nil
	_, err := pl.Run(context.Background(), in)

	var perr *Error
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, KindValidation, perr.Kind)
}

func TestRunPersistFailure(t *testing.T) {
	detector := &fakeDetector{result: testResult()}
	generator := &fakeGenerator{response: "narrative"}
	pl, store, _, publisher := testFixture(detector, generator)
	store.createErr = errors.New("db down")

	_, err := pl.Run(context.Background(), testInput())

	var perr *Error
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, KindPersistence, perr.Kind)
	assert.Empty(t, publisher.events, "no event for an unpersisted record")
}

func TestRunDeterministicSummaries(t *testing.T) {
	detector := &fakeDetector{result: testResult()}
	generator := &fakeGenerator{response: "narrative"}
	pl, store, _, _ := testFixture(detector, generator)

	in := testInput()
	_, err := pl.Run(context.Background(), in)
	assert.NoError(t, err)
	_, err = pl.Run(context.Background(), in)
	assert.NoError(t, err)

	assert.Len(t, store.created, 2)
	assert.Equal(t, store.created[0].FindingSummary, store.created[1].FindingSummary)
	assert.Equal(t, store.created[0].LesionAreaCM2, store.created[1].LesionAreaCM2)

	// Both composed prompts embed the same findings text.
	assert.Len(t, generator.prompts, 2)
	assert.True(t, strings.Contains(generator.prompts[0], store.created[0].FindingSummary))
	assert.Equal(t, generator.prompts[0], generator.prompts[1])
}
