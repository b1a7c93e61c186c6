package engine

import (
	"context"
	"errors"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nbr-bioinformatics/cohort-cli/internal/model"
	"github.com/nbr-bioinformatics/cohort-cli/internal/plink"
	"github.com/nbr-bioinformatics/cohort-cli/internal/resilience"
)

// extractAll subsets every source batch to the keep list in parallel,
// writing each result to <workDir>/<batchID><suffix>. When excludeFile is
// set the extraction also drops the listed variants. All-or-nothing: the
// first failure cancels the remaining extractions and fails the run, but
// already-written filesets stay on disk.
func (e *Engine) extractAll(ctx context.Context, batches []model.Batch, keepFile, workDir, suffix, excludeFile string) ([]model.ExtractedBatch, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	// Launching several extractions into multi-gigabyte .bed files at the
	// same instant stampedes the filesystem. Stagger the starts.
	limiter := rate.NewLimiter(rate.Limit(e.launchRate), 1)

	out := make([]model.ExtractedBatch, len(batches))
	for i, batch := range batches {
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}

			outPrefix := filepath.Join(workDir, batch.ID+suffix)
			if err := e.extractOne(gctx, batch, keepFile, excludeFile, outPrefix); err != nil {
				return err
			}
			out[i] = model.ExtractedBatch{
				SourceID:  batch.ID,
				Prefix:    outPrefix,
				Corrected: excludeFile != "",
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// extractOne runs a single subsetting invocation. Launch failures under
// resource pressure and per-call timeouts are retried with backoff; any
// other tool failure is final and carries the batch identity and stderr
// for diagnosis.
func (e *Engine) extractOne(ctx context.Context, batch model.Batch, keepFile, excludeFile, outPrefix string) error {
	cfg := e.retry
	cfg.OnRetry = resilience.RetryLogger("plink", "extract")

	res, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (plink.Result, error) {
		r, err := e.runner.Run(ctx, plink.ExtractArgs(batch.Prefix, keepFile, excludeFile, outPrefix)...)
		if err != nil {
			return plink.Result{}, err
		}
		if r.TimedOut {
			return r, resilience.NewTransientError(&ExtractionError{
				BatchID:  batch.ID,
				ExitCode: r.ExitCode,
				Stderr:   r.Stderr,
				TimedOut: true,
			})
		}
		return r, nil
	})
	if err != nil {
		var exErr *ExtractionError
		if errors.As(err, &exErr) {
			return exErr
		}
		return err
	}
	if !res.Ok() {
		return &ExtractionError{
			BatchID:  batch.ID,
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
		}
	}

	zap.L().Debug("extracted batch",
		zap.String("batch", batch.ID),
		zap.String("out", outPrefix),
		zap.Bool("corrected", excludeFile != ""))
	return nil
}
