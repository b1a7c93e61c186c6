package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbr-bioinformatics/cohort-cli/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGetRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "NBR030")
		require.NoError(t, err)
		assert.NotEmpty(t, run.ID)
		assert.Equal(t, "NBR030", run.Project)
		assert.Equal(t, model.RunStatusInit, run.Status)

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, "NBR030", got.Project)
		assert.Equal(t, model.RunStatusInit, got.Status)
		assert.Nil(t, got.Report)
	})

	t.Run("GetRunNotFound", func(t *testing.T) {
		s := newStore(t)

		_, err := s.GetRun(context.Background(), "nonexistent-id")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("UpdateRunStatus", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "NBR030")
		require.NoError(t, err)

		require.NoError(t, s.UpdateRunStatus(ctx, run.ID, model.RunStatusExtracted))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusExtracted, got.Status)
	})

	t.Run("UpdateRunStatusNotFound", func(t *testing.T) {
		s := newStore(t)

		err := s.UpdateRunStatus(context.Background(), "nonexistent-id", model.RunStatusMerged)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("UpdateRunReport", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "NBR030")
		require.NoError(t, err)

		report := &model.RunReport{
			RunID:             run.ID,
			Project:           "NBR030",
			Status:            model.RunStatusDone,
			BatchCount:        3,
			SamplesRequested:  250,
			ConflictCount:     12,
			CorrectionApplied: true,
			FinalSampleCount:  250,
			FinalVariantCount: 512773,
			OutputPrefix:      "/delivery/NBR030_final_genotypes",
			Stages: []model.Stage{
				{Name: "discover", Status: model.StageStatusComplete},
				{Name: "extract", Status: model.StageStatusComplete},
			},
		}
		require.NoError(t, s.UpdateRunReport(ctx, run.ID, report))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusDone, got.Status)
		require.NotNil(t, got.Report)
		assert.Equal(t, 3, got.Report.BatchCount)
		assert.Equal(t, 12, got.Report.ConflictCount)
		assert.True(t, got.Report.CorrectionApplied)
		assert.Equal(t, 512773, got.Report.FinalVariantCount)
		require.Len(t, got.Report.Stages, 2)
		assert.Equal(t, "extract", got.Report.Stages[1].Name)
	})

	t.Run("ListRuns", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		first, err := s.CreateRun(ctx, "NBR030")
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
		second, err := s.CreateRun(ctx, "NBR030")
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
		other, err := s.CreateRun(ctx, "NBR041")
		require.NoError(t, err)

		require.NoError(t, s.UpdateRunStatus(ctx, second.ID, model.RunStatusFailed))

		all, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		// Newest first.
		assert.Equal(t, other.ID, all[0].ID)
		assert.Equal(t, first.ID, all[2].ID)

		byProject, err := s.ListRuns(ctx, RunFilter{Project: "NBR030"})
		require.NoError(t, err)
		assert.Len(t, byProject, 2)

		failed, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, second.ID, failed[0].ID)

		limited, err := s.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, limited, 1)
		assert.Equal(t, second.ID, limited[0].ID)
	})

	t.Run("ListRunsCreatedAfter", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		older, err := s.CreateRun(ctx, "NBR030")
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
		cutoff := time.Now().UTC()
		time.Sleep(5 * time.Millisecond)
		newer, err := s.CreateRun(ctx, "NBR030")
		require.NoError(t, err)

		recent, err := s.ListRuns(ctx, RunFilter{CreatedAfter: cutoff})
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Equal(t, newer.ID, recent[0].ID)

		all, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, older.ID, all[1].ID)
	})

	t.Run("StageLifecycle", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "NBR030")
		require.NoError(t, err)

		discover, err := s.CreateStage(ctx, run.ID, "discover")
		require.NoError(t, err)
		assert.Equal(t, model.StageStatusRunning, discover.Status)

		time.Sleep(5 * time.Millisecond)
		extract, err := s.CreateStage(ctx, run.ID, "extract")
		require.NoError(t, err)

		require.NoError(t, s.CompleteStage(ctx, discover.ID, &model.Stage{
			Status:   model.StageStatusComplete,
			Detail:   "3 batches, 250 samples requested",
			Duration: 42,
		}))
		require.NoError(t, s.CompleteStage(ctx, extract.ID, &model.Stage{
			Status:   model.StageStatusFailed,
			Error:    "engine: batch batch_02 extraction exited 13",
			Duration: 9000,
		}))

		stages, err := s.ListStages(ctx, run.ID)
		require.NoError(t, err)
		require.Len(t, stages, 2)

		assert.Equal(t, "discover", stages[0].Name)
		assert.Equal(t, model.StageStatusComplete, stages[0].Status)
		assert.Equal(t, "3 batches, 250 samples requested", stages[0].Detail)
		assert.Equal(t, int64(42), stages[0].Duration)

		assert.Equal(t, "extract", stages[1].Name)
		assert.Equal(t, model.StageStatusFailed, stages[1].Status)
		assert.Contains(t, stages[1].Error, "exited 13")
	})

	t.Run("CompleteStageNotFound", func(t *testing.T) {
		s := newStore(t)

		err := s.CompleteStage(context.Background(), "nonexistent-id", &model.Stage{
			Status: model.StageStatusComplete,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("RecordAndListConflicts", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "NBR030")
		require.NoError(t, err)

		require.NoError(t, s.RecordConflicts(ctx, run.ID, []string{"rs456", "rs123", "rs789"}))

		ids, err := s.ListConflicts(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"rs123", "rs456", "rs789"}, ids)
	})

	t.Run("RecordConflictsEmpty", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "NBR030")
		require.NoError(t, err)

		require.NoError(t, s.RecordConflicts(ctx, run.ID, nil))

		ids, err := s.ListConflicts(ctx, run.ID)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}
