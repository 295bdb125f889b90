package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/your-org/aidecare/internal/models"
)

func testPatient() *models.Patient {
	dob := time.Date(1980, 6, 15, 0, 0, 0, 0, time.UTC)
	return &models.Patient{
		FirstName:          "Ada",
		LastName:           "Lovelace",
		DateOfBirth:        &dob,
		Gender:             "female",
		BloodType:          "A+",
		HeightCM:           170,
		WeightKG:           65,
		Allergies:          "none",
		CurrentMedications: "none",
		MedicalConditions:  "none",
	}
}

func testScan() ScanContext {
	return ScanContext{
		ScanDate:      time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		ScanType:      "MRI",
		SymptomsNotes: "recurring headaches",
	}
}

func TestComposePatientContainsDisclaimer(t *testing.T) {
	got := Compose(AudiencePatient, testPatient(), testScan(), "findings", "history", time.Now())
	assert.Contains(t, got, "THIS IS NOT REAL MEDICAL ADVICE")
	assert.Contains(t, got, "AIDE-MEMOIRE FOR THE AI DOCTOR")
}

func TestComposePatientInterpolatesContext(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	got := Compose(AudiencePatient, testPatient(), testScan(), "THE-FINDINGS", "THE-HISTORY", now)

	assert.Contains(t, got, "First Name: Ada")
	assert.Contains(t, got, "Age: 44")
	assert.Contains(t, got, "Current Scan Date: 2025-03-01")
	assert.Contains(t, got, "THE-FINDINGS")
	assert.Contains(t, got, "THE-HISTORY")
	assert.Contains(t, got, "recurring headaches")
	// The closing instruction addresses the patient by first name again.
	assert.True(t, strings.Count(got, "Ada") >= 2)
}

func TestComposeClinicianIsObjective(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	got := Compose(AudienceClinician, testPatient(), testScan(), "THE-FINDINGS", "THE-HISTORY", now)

	assert.Contains(t, got, "NEURORADIOLOGY ANALYSIS")
	assert.Contains(t, got, "Full name: Ada, Lovelace")
	assert.Contains(t, got, "(44 years old)")
	assert.Contains(t, got, "THE-FINDINGS")
	assert.Contains(t, got, "THE-HISTORY")
	assert.NotContains(t, got, "AIDE-MEMOIRE")
}

func TestAgeFullDateArithmetic(t *testing.T) {
	dob := time.Date(1980, 6, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		now  time.Time
		want int
	}{
		{time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC), 44}, // day before birthday
		{time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), 45}, // on the birthday
		{time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), 45}, // day after
		{time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 44},  // month before
		{time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), 45},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Age(&dob, tc.now), "now=%s", tc.now)
	}
}

func TestAgeEdgeCases(t *testing.T) {
	assert.Zero(t, Age(nil, time.Now()))

	future := time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Zero(t, Age(&future, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
}
