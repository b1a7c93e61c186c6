package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/nbr-bioinformatics/cohort-cli/internal/model"
	"github.com/nbr-bioinformatics/cohort-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of merge run health.
type MetricsSnapshot struct {
	// Run outcomes within the lookback window.
	RunsTotal     int     `json:"runs_total"`
	RunsDone      int     `json:"runs_done"`
	RunsFailed    int     `json:"runs_failed"`
	RunsCancelled int     `json:"runs_cancelled"`
	RunsInFlight  int     `json:"runs_in_flight"`
	RunsStuck     int     `json:"runs_stuck"`
	FailRate      float64 `json:"fail_rate"`

	// Strand correction activity within the window.
	CorrectedRuns    int `json:"corrected_runs"`
	ConflictVariants int `json:"conflict_variants"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers run metrics from the store.
type Collector struct {
	store      store.Store
	stuckAfter time.Duration
}

// NewCollector creates a metrics collector. An in-flight run whose last
// update is older than stuckAfter counts as stuck; zero disables
// stuck-run detection.
func NewCollector(st store.Store, stuckAfter time.Duration) *Collector {
	return &Collector{store: st, stuckAfter: stuckAfter}
}

// Collect gathers a snapshot of run health over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := time.Now().UTC()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	runs, err := c.store.ListRuns(ctx, store.RunFilter{
		CreatedAfter: now.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RunsTotal = len(runs)
	for _, r := range runs {
		switch r.Status {
		case model.RunStatusDone:
			snap.RunsDone++
		case model.RunStatusFailed:
			snap.RunsFailed++
		case model.RunStatusCancelled:
			snap.RunsCancelled++
		default:
			snap.RunsInFlight++
			if c.stuckAfter > 0 && now.Sub(r.UpdatedAt) > c.stuckAfter {
				snap.RunsStuck++
			}
		}
		if r.Report != nil {
			if r.Report.CorrectionApplied {
				snap.CorrectedRuns++
			}
			snap.ConflictVariants += r.Report.ConflictCount
		}
	}

	// Cancelled runs are operator action, not pipeline failure.
	if finished := snap.RunsDone + snap.RunsFailed; finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}

	return snap, nil
}
