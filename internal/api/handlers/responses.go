package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/your-org/aidecare/internal/models"
	"github.com/your-org/aidecare/pkg/dto"
)

const dateFormat = "2006-01-02"

// formatTimestamp normalizes to UTC so the rendered zone matches the
// instant regardless of where the value was produced.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parsePositive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("not positive: %d", n)
	}
	return n, nil
}

func patientResponse(p *models.Patient) dto.PatientResponse {
	return dto.PatientResponse{
		ID:          p.ID,
		Email:       p.Email,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		FullName:    p.FullName(),
		Role:        p.Role,
		DateOfBirth: p.DateOfBirth,
		Gender:      p.Gender,
		BloodType:   p.BloodType,
		HeightCM:    p.HeightCM,
		WeightKG:    p.WeightKG,

		PhoneNumber:   p.PhoneNumber,
		Address:       p.Address,
		City:          p.City,
		StateProvince: p.StateProvince,
		PostalCode:    p.PostalCode,
		Country:       p.Country,

		EmergencyContactName:         p.EmergencyContactName,
		EmergencyContactRelationship: p.EmergencyContactRelationship,
		EmergencyContactPhone:        p.EmergencyContactPhone,
		EmergencyContactEmail:        p.EmergencyContactEmail,

		Allergies:          p.Allergies,
		CurrentMedications: p.CurrentMedications,
		MedicalConditions:  p.MedicalConditions,

		ProfilePhotoKey:    p.ProfilePhotoKey,
		EmailNotifications: p.EmailNotifications,
		SMSNotifications:   p.SMSNotifications,
		CreatedAt:          p.CreatedAt,
	}
}

func scanResponse(r *models.ScanRecord) dto.ScanResponse {
	return dto.ScanResponse{
		ID:             r.ID,
		PatientID:      r.PatientID,
		ScanDate:       r.ScanDate.Format(dateFormat),
		ScanType:       r.ScanType,
		Facility:       r.Facility,
		SymptomsNotes:  r.SymptomsNotes,
		ImageKey:       r.ImageKey,
		OverlayKey:     r.OverlayKey,
		Detections:     r.Detections,
		FindingSummary: r.FindingSummary,
		Narrative:      r.Narrative,
		LesionAreaCM2:  r.LesionAreaCM2,
		CreatedAt:      formatTimestamp(r.CreatedAt),
	}
}

func chatMessageResponse(m *models.ChatMessage) dto.ChatMessageResponse {
	return dto.ChatMessageResponse{
		ID:          m.ID,
		ScanID:      m.ScanID,
		UserMessage: m.UserMessage,
		AIResponse:  m.AIResponse,
		Timestamp:   formatTimestamp(m.Timestamp),
	}
}
