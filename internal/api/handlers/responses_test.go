package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/aidecare/internal/models"
)

func TestFormatTimestampNormalizesZone(t *testing.T) {
	zone := time.FixedZone("CEST", 2*60*60)
	local := time.Date(2025, 3, 1, 14, 30, 0, 0, zone)

	got := formatTimestamp(local)

	assert.Equal(t, "2025-03-01T12:30:00Z", got)
}

func TestChatMessageResponseTimestampIsUTC(t *testing.T) {
	zone := time.FixedZone("EST", -5*60*60)
	msg := &models.ChatMessage{
		UserMessage: "hi",
		AIResponse:  "hello",
		Timestamp:   time.Date(2025, 3, 1, 20, 0, 0, 0, zone),
	}

	resp := chatMessageResponse(msg)

	assert.Equal(t, "2025-03-02T01:00:00Z", resp.Timestamp)
}

func TestParsePositive(t *testing.T) {
	n, err := parsePositive("7")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = parsePositive("0")
	assert.Error(t, err)
	_, err = parsePositive("abc")
	assert.Error(t, err)
}
