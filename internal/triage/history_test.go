package triage

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/your-org/aidecare/internal/models"
)

func TestSummarizeHistoryEmpty(t *testing.T) {
	assert.Equal(t, NoHistory, SummarizeHistory(nil))
	assert.Equal(t, NoHistory, SummarizeHistory([]models.ScanRecord{}))
}

func TestSummarizeHistoryOneLinePerRecordInOrder(t *testing.T) {
	scans := make([]models.ScanRecord, 3)
	for i := range scans {
		scans[i] = models.ScanRecord{
			ID:             uuid.New(),
			ScanDate:       time.Date(2024, time.Month(i+1), 10, 0, 0, 0, 0, time.UTC),
			ScanType:       "MRI",
			SymptomsNotes:  fmt.Sprintf("notes-%d", i),
			FindingSummary: fmt.Sprintf("summary-%d", i),
		}
	}

	got := SummarizeHistory(scans)
	lines := strings.Split(got, "\n")

	assert.Len(t, lines, 4)
	assert.Equal(t, historyHeader, lines[0])
	for i, scan := range scans {
		want := fmt.Sprintf(
			"- Scan ID %s on 2024-%02d-10, type: MRI. Notes: 'notes-%d'. Segmentation model detection notes: summary-%d",
			scan.ID, i+1, i, i)
		assert.Equal(t, want, lines[i+1])
	}
}
