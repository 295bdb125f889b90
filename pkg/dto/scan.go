package dto

import (
	"encoding/json"

	"github.com/google/uuid"
)

// AnalyzeScanForm is the multipart form accompanying a scan upload.
// The image itself arrives as the "scan_image" file part.
type AnalyzeScanForm struct {
	ScanDate      string `form:"scan_date" binding:"required"` // YYYY-MM-DD
	ScanType      string `form:"scan_type" binding:"required"`
	Facility      string `form:"facility"`
	SymptomsNotes string `form:"symptoms_notes"`

	// SeedChat asks the server to open a patient-facing conversation
	// about this scan using the analysis findings as the first turn.
	SeedChat bool `form:"seed_chat"`
}

type ScanResponse struct {
	ID             uuid.UUID       `json:"id"`
	PatientID      uuid.UUID       `json:"patient_id"`
	ScanDate       string          `json:"scan_date"`
	ScanType       string          `json:"scan_type"`
	Facility       string          `json:"facility,omitempty"`
	SymptomsNotes  string          `json:"symptoms_notes,omitempty"`
	ImageKey       string          `json:"image_key"`
	OverlayKey     string          `json:"overlay_key,omitempty"`
	Detections     json.RawMessage `json:"detections"`
	FindingSummary string          `json:"finding_summary"`
	Narrative      string          `json:"narrative"`
	LesionAreaCM2  float64         `json:"lesion_area_cm2"`
	CreatedAt      string          `json:"created_at"`
}

type AnalyzeScanResponse struct {
	Scan ScanResponse `json:"scan"`

	// SeededMessage is present when the upload asked for a chat seed.
	SeededMessage *ChatMessageResponse `json:"seeded_message,omitempty"`
}

type ScanListResponse struct {
	Scans []ScanResponse `json:"scans"`
	Total int            `json:"total"`
}

// WSScanEvent is a WebSocket message announcing a completed analysis.
type WSScanEvent struct {
	Type      string    `json:"type"` // scan_completed
	PatientID uuid.UUID `json:"patient_id"`
	ScanID    uuid.UUID `json:"scan_id"`
	ScanType  string    `json:"scan_type"`
	CreatedAt string    `json:"created_at"`
}
