package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ScanRecord is the persisted outcome of one full pipeline run for one
// uploaded image. Records are created exactly once, after detection and
// inference have both succeeded, and never mutated afterwards. A record
// with an empty Narrative is never written.
type ScanRecord struct {
	ID        uuid.UUID `json:"id" db:"id"`
	PatientID uuid.UUID `json:"patient_id" db:"patient_id"`

	// ScanDate is clinician-supplied, distinct from CreatedAt.
	ScanDate      time.Time `json:"scan_date" db:"scan_date"`
	ScanType      string    `json:"scan_type" db:"scan_type"`
	Facility      string    `json:"facility,omitempty" db:"facility"`
	SymptomsNotes string    `json:"symptoms_notes,omitempty" db:"symptoms_notes"`

	ImageKey   string `json:"image_key" db:"image_key"`
	OverlayKey string `json:"overlay_key,omitempty" db:"overlay_key"`

	Detections     json.RawMessage `json:"detections" db:"detections"`
	FindingSummary string          `json:"finding_summary" db:"finding_summary"`
	Narrative      string          `json:"narrative" db:"narrative"`
	LesionAreaCM2  float64         `json:"lesion_area_cm2" db:"lesion_area_cm2"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ScanEvent is published to NATS after a scan record is persisted.
type ScanEvent struct {
	PatientID uuid.UUID `json:"patient_id"`
	ScanID    uuid.UUID `json:"scan_id"`
	ScanType  string    `json:"scan_type"`
	CreatedAt time.Time `json:"created_at"`
}
