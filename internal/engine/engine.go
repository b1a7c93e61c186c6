// Package engine drives the self-healing genotype merge: extract cohort
// samples from every source batch, attempt a merge, and when batches
// disagree about variants, exclude the conflicting variants and retry
// once. A second disagreement fails the run; the engine never guesses at
// strand flips.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nbr-bioinformatics/cohort-cli/internal/catalog"
	"github.com/nbr-bioinformatics/cohort-cli/internal/cohort"
	"github.com/nbr-bioinformatics/cohort-cli/internal/model"
	"github.com/nbr-bioinformatics/cohort-cli/internal/plink"
	"github.com/nbr-bioinformatics/cohort-cli/internal/resilience"
	"github.com/nbr-bioinformatics/cohort-cli/internal/store"
)

// Options configures an Engine.
type Options struct {
	// WorkDir is the root under which each run gets an isolated
	// subdirectory keyed by run ID. Default "work".
	WorkDir string

	// Concurrency bounds parallel batch extractions. Default 4.
	Concurrency int

	// LaunchRate is the sustained rate (starts per second) at which
	// extraction processes are launched. Default 1.
	LaunchRate float64

	// Retry controls transient-failure retries on extraction calls.
	Retry resilience.RetryConfig
}

// Engine orchestrates merge runs.
type Engine struct {
	runner      plink.Runner
	store       store.Store
	workDir     string
	concurrency int
	launchRate  float64
	retry       resilience.RetryConfig
}

// New creates an Engine. The store may be nil, which disables run
// persistence (library use and tests).
func New(runner plink.Runner, st store.Store, opts Options) *Engine {
	if opts.WorkDir == "" {
		opts.WorkDir = "work"
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.LaunchRate <= 0 {
		opts.LaunchRate = 1.0
	}
	return &Engine{
		runner:      runner,
		store:       st,
		workDir:     opts.WorkDir,
		concurrency: opts.Concurrency,
		launchRate:  opts.LaunchRate,
		retry:       opts.Retry,
	}
}

// MergeSpec describes one merge run.
type MergeSpec struct {
	Project     string
	BatchDir    string // directory holding the source batch filesets
	KeepPath    string // cohort sample list
	DeliveryDir string // where the final fileset and VCF land
	ConvertVCF  bool
}

// Run executes a full merge run: it creates the run record, drives the
// state machine, and records the terminal status. The report is emitted
// and persisted whatever the outcome.
func (e *Engine) Run(ctx context.Context, spec MergeSpec) (*model.RunReport, error) {
	run, err := CreateRun(ctx, e.store, spec.Project)
	if err != nil {
		return nil, err
	}

	tr := NewTracker(e.store, run)
	_, err = e.Execute(ctx, tr, spec)
	tr.Finish(ctx, err)
	return tr.Report(), err
}

// Execute drives the merge state machine against an already-created run.
// It stops at the first fatal error and leaves intermediate files in the
// run directory for inspection. Terminal status mapping belongs to the
// caller via Tracker.Finish, so a wrapping pipeline can append its own
// stages first.
func (e *Engine) Execute(ctx context.Context, tr *Tracker, spec MergeSpec) (*model.FinalCohort, error) {
	log := zap.L().With(zap.String("run_id", tr.RunID()), zap.String("project", spec.Project))
	log.Info("starting merge run",
		zap.String("batch_dir", spec.BatchDir),
		zap.String("keep_list", spec.KeepPath))

	report := tr.Report()
	runDir := filepath.Join(e.workDir, tr.RunID())
	keepFile := filepath.Join(runDir, "keep_samples.txt")
	finalPrefix := filepath.Join(spec.DeliveryDir, spec.Project+"_final_genotypes")

	var batches []model.Batch
	var keep model.KeepList
	err := tr.Stage(ctx, "discover", func() (*model.Stage, error) {
		var err error
		if batches, err = catalog.Discover(spec.BatchDir); err != nil {
			return nil, err
		}
		if len(batches) < 2 {
			return nil, &InsufficientBatchesError{Found: len(batches)}
		}
		for _, b := range batches {
			stat, err := catalog.Stat(b)
			if err != nil {
				return nil, err
			}
			log.Info("discovered batch",
				zap.String("batch", b.ID),
				zap.Int("variants", stat.VariantCount),
				zap.Int("samples", stat.SampleCount))
		}
		if keep, err = cohort.LoadKeepList(spec.KeepPath); err != nil {
			return nil, err
		}
		if err = os.MkdirAll(runDir, 0755); err != nil {
			return nil, eris.Wrapf(err, "engine: create run directory %s", runDir)
		}
		if err = cohort.WriteKeepList(keepFile, keep); err != nil {
			return nil, err
		}
		report.BatchCount = len(batches)
		report.SamplesRequested = keep.Len()
		return &model.Stage{
			Detail: fmt.Sprintf("%d batches, %d samples requested", len(batches), keep.Len()),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	var extracted []model.ExtractedBatch
	err = tr.Stage(ctx, "extract", func() (*model.Stage, error) {
		var err error
		if extracted, err = e.extractAll(ctx, batches, keepFile, runDir, "_subset", ""); err != nil {
			return nil, err
		}
		return &model.Stage{Detail: fmt.Sprintf("extracted %d filesets", len(extracted))}, nil
	})
	if err != nil {
		return nil, err
	}
	tr.SetStatus(ctx, model.RunStatusExtracted)

	var result model.MergeResult
	err = tr.Stage(ctx, "merge_attempt", func() (*model.Stage, error) {
		var err error
		result, err = e.attemptMerge(ctx, extracted,
			filepath.Join(runDir, "merge_list.txt"),
			filepath.Join(runDir, "merge_attempt"))
		if err != nil {
			return nil, err
		}
		if result.Clean() {
			return &model.Stage{Detail: "clean merge"}, nil
		}
		return &model.Stage{
			Detail: fmt.Sprintf("%d conflicting variants", result.Conflicts.Len()),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	tr.SetStatus(ctx, model.RunStatusMergeAttempted)

	mergedPrefix := filepath.Join(runDir, "merge_attempt")
	if !result.Clean() {
		report.ConflictCount = result.Conflicts.Len()
		report.CorrectionApplied = true
		tr.SetStatus(ctx, model.RunStatusCorrecting)
		tr.RecordConflicts(ctx, result.Conflicts.IDs())

		var corrected []model.ExtractedBatch
		err = tr.Stage(ctx, "correct", func() (*model.Stage, error) {
			var err error
			if corrected, err = e.correct(ctx, batches, keepFile, runDir, result.Conflicts); err != nil {
				return nil, err
			}
			return &model.Stage{
				Detail: fmt.Sprintf("excluded %d variants, re-extracted %d batches",
					result.Conflicts.Len(), len(corrected)),
			}, nil
		})
		if err != nil {
			return nil, err
		}
		tr.SetStatus(ctx, model.RunStatusReextracted)

		var final model.MergeResult
		err = tr.Stage(ctx, "final_merge", func() (*model.Stage, error) {
			var err error
			final, err = e.attemptMerge(ctx, corrected,
				filepath.Join(runDir, "merge_list_corrected.txt"),
				filepath.Join(runDir, "merge_attempt_corrected"))
			if err != nil {
				return nil, err
			}
			if final.Clean() {
				return &model.Stage{Detail: "clean merge after correction"}, nil
			}
			return &model.Stage{
				Detail: fmt.Sprintf("%d conflicts remain after correction", final.Conflicts.Len()),
			}, nil
		})
		if err != nil {
			return nil, err
		}
		tr.SetStatus(ctx, model.RunStatusFinalMergeAttempted)

		if !final.Clean() {
			return nil, &UnresolvedConflictError{Remaining: final.Conflicts}
		}
		mergedPrefix = filepath.Join(runDir, "merge_attempt_corrected")
	}
	tr.SetStatus(ctx, model.RunStatusMerged)

	err = tr.Stage(ctx, "finalize", func() (*model.Stage, error) {
		if err := promote(mergedPrefix, finalPrefix); err != nil {
			return nil, err
		}
		samples, err := plink.CountLines(finalPrefix + ".fam")
		if err != nil {
			return nil, eris.Wrap(err, "engine: count final samples")
		}
		variants, err := plink.CountLines(finalPrefix + ".bim")
		if err != nil {
			return nil, eris.Wrap(err, "engine: count final variants")
		}
		report.FinalSampleCount = samples
		report.FinalVariantCount = variants
		report.OutputPrefix = finalPrefix
		if samples != keep.Len() {
			return nil, eris.Errorf(
				"engine: merged cohort has %d samples but the keep list names %d", samples, keep.Len())
		}
		return &model.Stage{
			Detail: fmt.Sprintf("%d samples, %d variants at %s", samples, variants, finalPrefix),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if spec.ConvertVCF {
		err = tr.Stage(ctx, "convert", func() (*model.Stage, error) {
			vcfPath, err := e.convert(ctx, finalPrefix, report.FinalSampleCount, report.FinalVariantCount)
			if err != nil {
				return nil, err
			}
			report.VCFPath = vcfPath
			return &model.Stage{Detail: vcfPath}, nil
		})
		if err != nil {
			return nil, err
		}
		tr.SetStatus(ctx, model.RunStatusConverted)
	} else {
		_ = tr.Stage(ctx, "convert", func() (*model.Stage, error) {
			return &model.Stage{Status: model.StageStatusSkipped, Detail: "vcf conversion disabled"}, nil
		})
	}

	log.Info("merge run complete",
		zap.Int("samples", report.FinalSampleCount),
		zap.Int("variants", report.FinalVariantCount),
		zap.Bool("correction_applied", report.CorrectionApplied),
		zap.String("output", finalPrefix))

	return &model.FinalCohort{
		Prefix:       finalPrefix,
		SampleCount:  report.FinalSampleCount,
		VariantCount: report.FinalVariantCount,
		VCFPath:      report.VCFPath,
	}, nil
}
