// Package pipeline orchestrates one scan analysis run from upload to
// persisted record. Stages run strictly in order; any failure before
// the final insert aborts the run and leaves no database record.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/aidecare/internal/llm"
	"github.com/your-org/aidecare/internal/models"
	"github.com/your-org/aidecare/internal/observability"
	"github.com/your-org/aidecare/internal/prompt"
	"github.com/your-org/aidecare/internal/storage"
	"github.com/your-org/aidecare/internal/triage"
	"github.com/your-org/aidecare/internal/vision"
)

// RecordStore is the slice of the database layer the pipeline needs.
type RecordStore interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*models.Patient, error)
	CreateScanRecord(ctx context.Context, r *models.ScanRecord) error
	ListScanHistory(ctx context.Context, patientID uuid.UUID) ([]models.ScanRecord, error)
}

// ImageStore persists the original upload and the annotated overlay.
type ImageStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// Publisher announces completed runs; delivery is best effort.
type Publisher interface {
	PublishScanCompleted(ctx context.Context, data interface{}) error
}

// Input carries one upload through the pipeline.
type Input struct {
	PatientID     uuid.UUID
	Filename      string
	ContentType   string
	ImageData     []byte
	ScanDate      time.Time
	ScanType      string
	Facility      string
	SymptomsNotes string
}

// Output is what a successful run produces. PatientPrompt is the
// patient-facing prompt for the same findings, handed back so the chat
// layer can seed a conversation without recomputing it.
type Output struct {
	Record        *models.ScanRecord
	PatientPrompt string
}

type Pipeline struct {
	detector  vision.Service
	generator llm.Client
	records   RecordStore
	images    ImageStore
	publisher Publisher
	cal       vision.Calibration
}

func New(detector vision.Service, generator llm.Client, records RecordStore, images ImageStore, publisher Publisher, cal vision.Calibration) *Pipeline {
	return &Pipeline{
		detector:  detector,
		generator: generator,
		records:   records,
		images:    images,
		publisher: publisher,
		cal:       cal,
	}
}

// Run executes all stages for one upload. The returned error is always
// a *Error; callers map its Kind to a response.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Output, error) {
	out, err := p.run(ctx, in)
	if err != nil {
		var perr *Error
		if errors.As(err, &perr) {
			observability.ScansProcessed.WithLabelValues(perr.Kind.String()).Inc()
		} else {
			observability.ScansProcessed.WithLabelValues("unknown").Inc()
		}
		return nil, err
	}
	observability.ScansProcessed.WithLabelValues("success").Inc()
	return out, nil
}

func (p *Pipeline) run(ctx context.Context, in Input) (*Output, error) {
	if len(in.ImageData) == 0 {
		return nil, validationErr("No scan image provided.")
	}
	if in.PatientID == uuid.Nil {
		return nil, validationErr("Missing patient.")
	}

	patient, err := p.records.GetPatient(ctx, in.PatientID)
	if err != nil {
		return nil, persistenceErr(err)
	}
	if patient == nil {
		return nil, validationErr("Unknown patient.")
	}

	// Store the original before anything can fail; the object is
	// harmless orphan data if a later stage aborts the run.
	imageKey := storage.UploadKey(in.PatientID, in.Filename)
	if err := p.stage("store", func() error {
		return p.images.Put(ctx, imageKey, in.ImageData, in.ContentType)
	}); err != nil {
		return nil, &Error{Kind: KindPersistence, UserMessage: "Failed to store the scan image.", Err: err}
	}

	var result *vision.Result
	if err := p.stage("detect", func() error {
		var derr error
		result, derr = p.detector.Detect(ctx, in.ImageData)
		return derr
	}); err != nil {
		return nil, detectionErr("The analysis model failed to process the scan.", err)
	}
	if len(result.Detections) == 0 {
		slog.Info("no detections, aborting run", "patient_id", in.PatientID)
		return nil, detectionErr("No regions of interest were detected in the scan. No record was created.", nil)
	}
	observability.RegionsDetected.Add(float64(len(result.Detections)))

	lesionArea := vision.LesionArea(result.Detections, p.cal)
	findings := triage.Summarize(result.Detections, lesionArea)

	history, err := p.records.ListScanHistory(ctx, in.PatientID)
	if err != nil {
		return nil, persistenceErr(err)
	}
	historyText := triage.SummarizeHistory(history)

	now := time.Now().UTC()
	scanCtx := prompt.ScanContext{
		ScanDate:      in.ScanDate,
		ScanType:      in.ScanType,
		SymptomsNotes: in.SymptomsNotes,
	}
	clinicianPrompt := prompt.Compose(prompt.AudienceClinician, patient, scanCtx, findings, historyText, now)
	patientPrompt := prompt.Compose(prompt.AudiencePatient, patient, scanCtx, findings, historyText, now)

	// Both prompt templates reference the original scan and the
	// annotated render, in that order.
	var narrative string
	if err := p.stage("infer", func() error {
		var gerr error
		narrative, gerr = p.generator.Generate(ctx, clinicianPrompt, [][]byte{in.ImageData, result.Overlay})
		return gerr
	}); err != nil {
		return nil, inferenceError(err)
	}
	if narrative == "" {
		return nil, &Error{
			Kind:        KindInferenceService,
			UserMessage: llm.UserMsgService,
			Err:         fmt.Errorf("empty narrative from model"),
		}
	}

	overlayKey := storage.OverlayKey(in.PatientID, imageKey)
	if err := p.stage("overlay", func() error {
		return p.images.Put(ctx, overlayKey, result.Overlay, "image/jpeg")
	}); err != nil {
		// The overlay is a convenience render. Keep the run alive.
		slog.Warn("store overlay failed", "error", err, "key", overlayKey)
		overlayKey = ""
	}

	detectionsJSON, err := json.Marshal(result.Detections)
	if err != nil {
		return nil, persistenceErr(fmt.Errorf("marshal detections: %w", err))
	}

	record := &models.ScanRecord{
		PatientID:      in.PatientID,
		ScanDate:       in.ScanDate,
		ScanType:       in.ScanType,
		Facility:       in.Facility,
		SymptomsNotes:  in.SymptomsNotes,
		ImageKey:       imageKey,
		OverlayKey:     overlayKey,
		Detections:     detectionsJSON,
		FindingSummary: findings,
		Narrative:      narrative,
		LesionAreaCM2:  lesionArea,
	}
	if err := p.stage("persist", func() error {
		return p.records.CreateScanRecord(ctx, record)
	}); err != nil {
		return nil, persistenceErr(err)
	}

	if p.publisher != nil {
		event := models.ScanEvent{
			PatientID: record.PatientID,
			ScanID:    record.ID,
			ScanType:  record.ScanType,
			CreatedAt: record.CreatedAt,
		}
		if err := p.publisher.PublishScanCompleted(ctx, event); err != nil {
			slog.Warn("publish scan completed failed", "error", err, "scan_id", record.ID)
		}
	}

	slog.Info("scan analysis complete",
		"scan_id", record.ID,
		"patient_id", record.PatientID,
		"detections", len(result.Detections),
		"lesion_area_cm2", lesionArea)

	return &Output{Record: record, PatientPrompt: patientPrompt}, nil
}

func (p *Pipeline) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	observability.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return err
}

// inferenceError maps the LLM client's error types onto pipeline kinds,
// carrying the client's user-safe message through.
func inferenceError(err error) *Error {
	var terr *llm.TransportError
	if errors.As(err, &terr) {
		return &Error{Kind: KindInferenceTransport, UserMessage: terr.UserMessage(), Err: err}
	}
	var serr *llm.ServiceError
	if errors.As(err, &serr) {
		return &Error{Kind: KindInferenceService, UserMessage: serr.UserMessage(), Err: err}
	}
	return &Error{Kind: KindInferenceTransport, UserMessage: llm.UserMsgUnreachable, Err: err}
}
