package pipeline

import "fmt"

// Kind classifies where in the run a failure happened. HTTP handlers
// map kinds to status codes and user-safe messages without inspecting
// wrapped causes.
type Kind int

const (
	KindValidation Kind = iota
	KindDetection
	KindInferenceTransport
	KindInferenceService
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDetection:
		return "detection"
	case KindInferenceTransport:
		return "inference_transport"
	case KindInferenceService:
		return "inference_service"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error is the failure type every pipeline run returns. UserMessage is
// safe to show to patients; Err carries the full cause for logs.
type Error struct {
	Kind        Kind
	UserMessage string
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.UserMessage)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validationErr(msg string) *Error {
	return &Error{Kind: KindValidation, UserMessage: msg}
}

func detectionErr(msg string, err error) *Error {
	return &Error{Kind: KindDetection, UserMessage: msg, Err: err}
}

func persistenceErr(err error) *Error {
	return &Error{Kind: KindPersistence, UserMessage: "Failed to save the scan record.", Err: err}
}
