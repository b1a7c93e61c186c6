package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStatusValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status RunStatus
		want   string
	}{
		{RunStatusInit, "init"},
		{RunStatusExtracted, "extracted"},
		{RunStatusMergeAttempted, "merge_attempted"},
		{RunStatusCorrecting, "correcting"},
		{RunStatusReextracted, "reextracted"},
		{RunStatusFinalMergeAttempted, "final_merge_attempted"},
		{RunStatusMerged, "merged"},
		{RunStatusConverted, "converted"},
		{RunStatusDone, "done"},
		{RunStatusFailed, "failed"},
		{RunStatusCancelled, "cancelled"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.status))
		})
	}
}

func TestRunStatusTerminal(t *testing.T) {
	t.Parallel()

	terminal := []RunStatus{RunStatusDone, RunStatusFailed, RunStatusCancelled}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "%s should be terminal", s)
	}

	active := []RunStatus{
		RunStatusInit, RunStatusExtracted, RunStatusMergeAttempted,
		RunStatusCorrecting, RunStatusReextracted, RunStatusFinalMergeAttempted,
		RunStatusMerged, RunStatusConverted,
	}
	for _, s := range active {
		assert.False(t, s.Terminal(), "%s should not be terminal", s)
	}
}

func TestStageStatusValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status StageStatus
		want   string
	}{
		{StageStatusRunning, "running"},
		{StageStatusComplete, "complete"},
		{StageStatusFailed, "failed"},
		{StageStatusSkipped, "skipped"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.status))
		})
	}
}
