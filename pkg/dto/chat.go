package dto

import "github.com/google/uuid"

// ChatRequest is one patient question, optionally anchored to a scan.
type ChatRequest struct {
	Message string     `json:"message" binding:"required"`
	ScanID  *uuid.UUID `json:"scan_id,omitempty"`
}

type ChatMessageResponse struct {
	ID          uuid.UUID  `json:"id"`
	ScanID      *uuid.UUID `json:"scan_id,omitempty"`
	UserMessage string     `json:"user_message"`
	AIResponse  string     `json:"ai_response"`
	Timestamp   string     `json:"timestamp"`
}

type ChatHistoryResponse struct {
	Messages []ChatMessageResponse `json:"messages"`
	Total    int                   `json:"total"`
}
