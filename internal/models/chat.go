package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one conversational turn: the patient's text and the
// generated response. Immutable after creation; ordered by Timestamp
// ascending within a conversation.
type ChatMessage struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	PatientID   uuid.UUID  `json:"patient_id" db:"patient_id"`
	ScanID      *uuid.UUID `json:"scan_id,omitempty" db:"scan_id"`
	UserMessage string     `json:"user_message" db:"user_message"`
	AIResponse  string     `json:"ai_response" db:"ai_response"`
	Timestamp   time.Time  `json:"timestamp" db:"timestamp"`
}
