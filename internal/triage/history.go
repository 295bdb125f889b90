package triage

import (
	"fmt"
	"strings"

	"github.com/your-org/aidecare/internal/models"
)

// NoHistory is the sentinel for a patient with no prior scan records.
const NoHistory = "The patient has no prior medical scan history in the database."

const historyHeader = "Patient's previous medical scan history:"

// SummarizeHistory renders prior scan records into a textual narrative
// for context injection: one line per scan carrying ID, ISO date, scan
// type, free-text notes, and the detection-derived finding summary.
// Ordering is caller-supplied and preserved; for a clinically coherent
// narrative callers pass records ascending by scan date (the record
// store's ListScanHistory does exactly that).
func SummarizeHistory(scans []models.ScanRecord) string {
	if len(scans) == 0 {
		return NoHistory
	}

	lines := []string{historyHeader}
	for _, scan := range scans {
		lines = append(lines, fmt.Sprintf(
			"- Scan ID %s on %s, type: %s. Notes: '%s'. Segmentation model detection notes: %s",
			scan.ID,
			scan.ScanDate.Format("2006-01-02"),
			scan.ScanType,
			scan.SymptomsNotes,
			scan.FindingSummary,
		))
	}
	return strings.Join(lines, "\n")
}
