package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nbr-bioinformatics/cohort-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:      "abc12345-6789-0000-0000-000000000000",
			Project: "NBR030",
			Status:  model.RunStatusDone,
			Report: &model.RunReport{
				FinalSampleCount:  481,
				FinalVariantCount: 512773,
			},
			CreatedAt: now,
			UpdatedAt: now.Add(12 * time.Minute),
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Project:   "NBR031",
			Status:    model.RunStatusCorrecting,
			CreatedAt: now.Add(-1 * time.Hour),
			UpdatedAt: now.Add(-30 * time.Minute),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "PROJECT")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "NBR030")
	assert.Contains(t, output, "done")
	assert.Contains(t, output, "481")
	assert.Contains(t, output, "512773")
	assert.Contains(t, output, "NBR031")
	assert.Contains(t, output, "correcting")
	assert.Contains(t, output, "2026-03-14 10:30")
	assert.NotContains(t, output, "abc12345-6789")
}

func TestFormatRunsList_NoReport(t *testing.T) {
	runs := []model.Run{
		{
			ID:      "abc12345-6789-0000-0000-000000000000",
			Project: "NBR030",
			Status:  model.RunStatusFailed,
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	assert.Contains(t, buf.String(), "-")
	assert.Contains(t, buf.String(), "failed")
}

func TestComputeRunStats(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	runs := []model.Run{
		{ID: "1", Status: model.RunStatusDone, CreatedAt: now, UpdatedAt: now.Add(10 * time.Second)},
		{ID: "2", Status: model.RunStatusDone, CreatedAt: now, UpdatedAt: now.Add(20 * time.Second),
			Report: &model.RunReport{CorrectionApplied: true}},
		{ID: "3", Status: model.RunStatusFailed},
		{ID: "4", Status: model.RunStatusCancelled},
		{ID: "5", Status: model.RunStatusExtracted},
	}

	s := computeRunStats(runs)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 2, s.Done)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Cancelled)
	assert.Equal(t, 1, s.InFlight)
	assert.Equal(t, 1, s.Corrected)
	assert.InDelta(t, 15.0, s.AvgDurSecs, 0.01)
}

func TestFormatRunStats(t *testing.T) {
	var buf bytes.Buffer
	formatRunStats(&buf, runStats{
		Total: 10, Done: 7, Failed: 2, Cancelled: 1, Corrected: 3, AvgDurSecs: 42.5,
	})

	output := buf.String()
	assert.Contains(t, output, "Total runs:")
	assert.Contains(t, output, "10")
	assert.Contains(t, output, "Needed correction:")
	assert.Contains(t, output, "42.5s")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789-0000"))
	assert.Equal(t, "short", truncateID("short"))
}
