package store

import (
	"context"
	"errors"
	"time"

	"github.com/nbr-bioinformatics/cohort-cli/internal/model"
)

// ErrNotFound is returned when a run or stage does not exist. Callers
// match it with errors.Is; implementations wrap it with the entity and ID.
var ErrNotFound = errors.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status       model.RunStatus `json:"status,omitempty"`
	Project      string          `json:"project,omitempty"`
	CreatedAfter time.Time       `json:"created_after,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	Offset       int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for merge runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, project string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunReport(ctx context.Context, runID string, report *model.RunReport) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Stages
	CreateStage(ctx context.Context, runID string, name string) (*model.Stage, error)
	CompleteStage(ctx context.Context, stageID string, stage *model.Stage) error
	ListStages(ctx context.Context, runID string) ([]model.Stage, error)

	// Conflicts records which variant IDs a run's correction excluded.
	RecordConflicts(ctx context.Context, runID string, variantIDs []string) error
	ListConflicts(ctx context.Context, runID string) ([]string, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
