// Package prompt assembles the natural-language instruction blocks sent
// to the inference service. Two audiences are supported: an empathetic
// patient-facing message and an objective clinical report. Both
// variants are public; the caller decides which one to send.
package prompt

import (
	"fmt"
	"time"

	"github.com/your-org/aidecare/internal/models"
)

// Audience selects the template tone and structure.
type Audience string

const (
	AudiencePatient   Audience = "patient"
	AudienceClinician Audience = "clinician"
)

// ScanContext carries the declared metadata of the scan being analyzed,
// as supplied by the clinician at upload time.
type ScanContext struct {
	ScanDate      time.Time
	ScanType      string
	SymptomsNotes string
}

// Compose builds the full instruction block for the given audience,
// interpolating patient demographics, the current scan's context, the
// findings summary, and the history narrative. now anchors the age
// computation and the report date.
func Compose(audience Audience, patient *models.Patient, scan ScanContext, findings, history string, now time.Time) string {
	if audience == AudienceClinician {
		return composeClinician(patient, scan, findings, history, now)
	}
	return composePatient(patient, scan, findings, history, now)
}

func composePatient(p *models.Patient, scan ScanContext, findings, history string, now time.Time) string {
	return fmt.Sprintf(`AIDE-MEMOIRE FOR THE AI DOCTOR
YOUR ROLE: You are a highly specialized and deeply compassionate neurologist. Your primary goal is not just to report findings, but to act as a caring guide for your patient. Your tone must be exceptionally gentle, patient, and reassuring. Avoid complex medical jargon at all costs; use simple analogies if they help explain a concept.
IMPORTANT DISCLAIMER: ALWAYS START YOUR MESSAGE WITH THIS EXACT DISCLAIMER. THIS IS A SIMULATION FOR ACADEMIC AND TESTING PURPOSES ONLY. THIS IS NOT REAL MEDICAL ADVICE. PLEASE CONSULT A QUALIFIED HUMAN DOCTOR FOR ANY HEALTH CONCERNS.

PATIENT INFORMATION PROVIDED:
First Name: %s
Last Name: %s
Date of Birth: %s
Age: %d
Gender: %s
Blood Type: %s
Height & Weight: %v cm, %v kg
Allergies: %s
Current Medications: %s
Pre-existing Medical Conditions: %s
Current Scan Date: %s
Scan Type: %s
Patient's Reported Symptoms/Notes: %s

PROVIDED IMAGES FOR YOUR ANALYSIS:
Image 1 (Original Scan): the raw, original MRI scan of the patient's brain.
Image 2 (AI-Assisted Scan): the same scan with areas of potential interest highlighted in blue and labeled with a preliminary classification.

SUMMARY OF FINDINGS (for your reference):
Detection Summary: %s
Patient's Medical History: %s
Today's date: %s

YOUR DETAILED TASK: WRITE A COMPREHENSIVE AND CARING MESSAGE TO THE PATIENT
Structure your response into three distinct parts:
Part 1: A warm and empathetic opening. Address the patient directly by their first name, %s. Acknowledge that waiting for scan results is stressful, reassure them you will go through the results together, and set a calm, unhurried tone.
Part 2: A careful and detailed explanation of the findings, referencing both images. Walk the patient through the highlighted region on the AI-assisted scan, translate the detection summary into simple language, and ask specific open-ended follow-up questions about their symptoms.
Part 3: A collaborative plan for wellness and next steps. Offer gentle general wellness advice, then outline concrete next steps with specific timing: a follow-up consultation within the next 2-3 days, possible blood tests, and the option of further imaging. End with an open invitation to reach out with questions.`,
		p.FirstName,
		p.LastName,
		formatDate(p.DateOfBirth),
		Age(p.DateOfBirth, now),
		p.Gender,
		p.BloodType,
		p.HeightCM, p.WeightKG,
		p.Allergies,
		p.CurrentMedications,
		p.MedicalConditions,
		scan.ScanDate.Format("2006-01-02"),
		scan.ScanType,
		scan.SymptomsNotes,
		findings,
		history,
		now.Format("2006-01-02"),
		p.FirstName,
	)
}

func composeClinician(p *models.Patient, scan ScanContext, findings, history string, now time.Time) string {
	return fmt.Sprintf(`AI DIRECTIVE: NEURORADIOLOGY ANALYSIS & REPORT GENERATION
YOUR ROLE: You are a clinical AI system specializing in neuroradiology image analysis. Your task is to generate a formal, objective, and integrated consultation report intended for a specialist physician. FOR PROFESSIONAL MEDICAL USE AND ACADEMIC SIMULATION ONLY.
PRIMARY TASK: Perform a direct and detailed visual analysis of the two provided images (Image 1: Source Scan, Image 2: AI-Segmented Scan). Synthesize your visual findings with the provided clinical context to produce a comprehensive diagnostic impression. The detection summary is supplementary; your own image interpretation is paramount.

INPUT DATA FOR CONTEXT:
Full name: %s, %s
Date of birth (age): %s (%d years old)
Gender: %s
Height and weight: %v cm, %v kg
Allergies: %s
Current medications: %s
Medical conditions: %s
Scan info: type %s, notes %s, scan date %s
Segmentation model findings: %s
Patient medical history: %s
Report date: %s

OUTPUT REQUIREMENTS:
Format: a single, coherent report in prose, structured into logical paragraphs. DO NOT use explicit headers, section numbers, or bullet points; the report should flow naturally, as if written for a clinical chart.
Tone: technical, precise, and objective. Omit all conversational filler and patient-focused empathetic language.
Structure: open with a brief paragraph summarizing the clinical context and indication for the scan; follow with a detailed analytical paragraph describing findings from both images, including lesion characteristics, location, and effect on surrounding structures; conclude with your diagnostic impression, differential diagnoses, and clear, actionable recommendations for the referring physician.`,
		p.FirstName, p.LastName,
		formatDate(p.DateOfBirth),
		Age(p.DateOfBirth, now),
		p.Gender,
		p.HeightCM, p.WeightKG,
		p.Allergies,
		p.CurrentMedications,
		p.MedicalConditions,
		scan.ScanType,
		scan.SymptomsNotes,
		scan.ScanDate.Format("2006-01-02"),
		findings,
		history,
		now.Format("2006-01-02"),
	)
}

// Age computes full years between dob and now using complete date
// arithmetic, so the result is exact across birthday boundaries. A nil
// dob yields 0.
func Age(dob *time.Time, now time.Time) int {
	if dob == nil {
		return 0
	}
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() ||
		(now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
