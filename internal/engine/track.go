package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nbr-bioinformatics/cohort-cli/internal/model"
	"github.com/nbr-bioinformatics/cohort-cli/internal/store"
)

// Tracker records a run's progress: status transitions, stage rows, and
// the accumulating RunReport. Store writes are best-effort; losing a row
// must never abort the run itself. A nil store disables persistence.
type Tracker struct {
	store  store.Store
	run    *model.Run
	report *model.RunReport
	log    *zap.Logger
}

// CreateRun opens a new run record for project. With a nil store the run
// exists only in memory, which is how library callers and tests operate.
func CreateRun(ctx context.Context, st store.Store, project string) (*model.Run, error) {
	if st == nil {
		now := time.Now().UTC()
		return &model.Run{
			ID:        uuid.NewString(),
			Project:   project,
			Status:    model.RunStatusInit,
			CreatedAt: now,
			UpdatedAt: now,
		}, nil
	}
	run, err := st.CreateRun(ctx, project)
	if err != nil {
		return nil, eris.Wrap(err, "engine: create run")
	}
	return run, nil
}

// NewTracker wraps an already-created run.
func NewTracker(st store.Store, run *model.Run) *Tracker {
	return &Tracker{
		store: st,
		run:   run,
		report: &model.RunReport{
			RunID:     run.ID,
			Project:   run.Project,
			Status:    run.Status,
			StartedAt: run.CreatedAt,
		},
		log: zap.L().With(zap.String("run_id", run.ID), zap.String("project", run.Project)),
	}
}

// Report returns the accumulating run report. Callers fill in counts as
// they become known.
func (t *Tracker) Report() *model.RunReport { return t.report }

// RunID returns the tracked run's identifier.
func (t *Tracker) RunID() string { return t.run.ID }

// SetStatus transitions the run and persists the new status.
func (t *Tracker) SetStatus(ctx context.Context, status model.RunStatus) {
	t.run.Status = status
	t.report.Status = status
	t.log.Debug("run status", zap.String("status", string(status)))

	if t.store == nil {
		return
	}
	if err := t.store.UpdateRunStatus(ctx, t.run.ID, status); err != nil {
		t.log.Warn("failed to update run status", zap.Error(err))
	}
}

// Stage executes fn as a named stage: a stage row is opened, fn runs, and
// the completed stage (status, detail, duration, error) is persisted and
// appended to the report. fn may return a partial Stage to attach detail
// or mark itself skipped. The error from fn is returned unchanged so the
// caller can halt the run.
func (t *Tracker) Stage(ctx context.Context, name string, fn func() (*model.Stage, error)) error {
	var row *model.Stage
	if t.store != nil {
		var err error
		row, err = t.store.CreateStage(ctx, t.run.ID, name)
		if err != nil {
			t.log.Warn("failed to create stage row", zap.String("stage", name), zap.Error(err))
		}
	}

	start := time.Now().UTC()
	stage, fnErr := fn()
	duration := time.Since(start).Milliseconds()

	if stage == nil {
		stage = &model.Stage{}
	}
	stage.RunID = t.run.ID
	stage.Name = name
	stage.StartedAt = start
	stage.Duration = duration

	if fnErr != nil {
		stage.Status = model.StageStatusFailed
		stage.Error = fnErr.Error()
		t.log.Error("stage failed",
			zap.String("stage", name),
			zap.Int64("duration_ms", duration),
			zap.Error(fnErr))
	} else {
		if stage.Status == "" {
			stage.Status = model.StageStatusComplete
		}
		t.log.Info("stage complete",
			zap.String("stage", name),
			zap.String("status", string(stage.Status)),
			zap.Int64("duration_ms", duration))
	}

	if row != nil {
		stage.ID = row.ID
		if err := t.store.CompleteStage(ctx, row.ID, stage); err != nil {
			t.log.Warn("failed to complete stage row", zap.String("stage", name), zap.Error(err))
		}
	}
	t.report.Stages = append(t.report.Stages, *stage)

	return fnErr
}

// RecordConflicts persists the variant IDs a correction round excluded,
// so operators can query which variants a given run dropped.
func (t *Tracker) RecordConflicts(ctx context.Context, variantIDs []string) {
	if t.store == nil {
		return
	}
	if err := t.store.RecordConflicts(ctx, t.run.ID, variantIDs); err != nil {
		t.log.Warn("failed to record conflicts", zap.Error(err))
	}
}

// Finish records the terminal status implied by runErr and persists the
// report. Cancellation is kept distinct from failure so an operator can
// tell an interrupted run from a broken one. Persistence uses a context
// detached from cancellation: a cancelled run still gets its report.
func (t *Tracker) Finish(ctx context.Context, runErr error) {
	ctx = context.WithoutCancel(ctx)
	t.report.FinishedAt = time.Now().UTC()

	switch {
	case runErr == nil:
		t.SetStatus(ctx, model.RunStatusDone)
	case errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
		t.report.Error = runErr.Error()
		t.SetStatus(ctx, model.RunStatusCancelled)
	default:
		t.report.Error = runErr.Error()
		t.SetStatus(ctx, model.RunStatusFailed)
	}

	if t.store == nil {
		return
	}
	if err := t.store.UpdateRunReport(ctx, t.run.ID, t.report); err != nil {
		t.log.Warn("failed to save run report", zap.Error(err))
	}
}
