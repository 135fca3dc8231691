package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asrun-analyzer/backend/internal/models"
)

func TestGapTemplate(t *testing.T) {
	loc, err := time.LoadLocation("America/Anchorage")
	require.NoError(t, err)

	report := &models.GapReport{
		Status:      models.GapStatusBehind,
		CurrentTime: time.Date(2024, 11, 11, 10, 0, 0, 0, loc),
		LatestFile: &models.RemoteFileEntry{
			Filename:  "BXF20241108T055959_CompleteAsRun.xml",
			Size:      4096,
			Timestamp: time.Date(2024, 11, 8, 5, 59, 59, 0, loc),
		},
		MissingDates: []time.Time{
			time.Date(2024, 11, 9, 0, 0, 0, 0, loc),
			time.Date(2024, 11, 10, 0, 0, 0, 0, loc),
			time.Date(2024, 11, 11, 0, 0, 0, 0, loc),
		},
		DaysBehind: 3,
	}

	body, err := render(gapTemplate, report)
	require.NoError(t, err)

	assert.Contains(t, body, "Days Behind:</strong> 3")
	assert.Contains(t, body, "2024-11-09")
	assert.Contains(t, body, "2024-11-10")
	assert.Contains(t, body, "2024-11-11")
	assert.Contains(t, body, "BXF20241108T055959_CompleteAsRun.xml")
	assert.Contains(t, body, "4096 bytes")
}

func TestGapTemplate_NoLatestFile(t *testing.T) {
	report := &models.GapReport{
		Status:       models.GapStatusNoFilesFound,
		CurrentTime:  time.Now(),
		MissingDates: []time.Time{},
	}

	body, err := render(gapTemplate, report)
	require.NoError(t, err)
	assert.NotContains(t, body, "Latest File Details")
}

func TestStatusTemplate(t *testing.T) {
	body, err := render(statusTemplate, StatusInfo{
		TotalFiles:    120,
		RecentFiles:   1,
		SystemStatus:  "healthy",
		UnknownValues: []string{"spot_type:XY"},
	})
	require.NoError(t, err)

	assert.Contains(t, body, "Total Files Processed:</strong> 120")
	assert.Contains(t, body, "spot_type:XY")
}
