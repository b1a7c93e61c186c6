// Package pipeline drives a full cohort delivery: filter the cohort
// against exclusion lists, run the merge engine, generate integrity
// manifests, and stage the result for transfer. Every step is tracked
// as a stage of one run, so `runs show` tells the whole story.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nbr-bioinformatics/cohort-cli/internal/cohort"
	"github.com/nbr-bioinformatics/cohort-cli/internal/config"
	"github.com/nbr-bioinformatics/cohort-cli/internal/engine"
	"github.com/nbr-bioinformatics/cohort-cli/internal/manifest"
	"github.com/nbr-bioinformatics/cohort-cli/internal/model"
	"github.com/nbr-bioinformatics/cohort-cli/internal/store"
	"github.com/nbr-bioinformatics/cohort-cli/internal/transfer"
)

// Pipeline orchestrates cohort deliveries end to end.
type Pipeline struct {
	cfg      *config.Config
	store    store.Store
	engine   *engine.Engine
	profiles *Profiles
}

// New creates a Pipeline. The store may be nil (no persistence) and
// profiles may be nil (global config applies to every project).
func New(cfg *config.Config, st store.Store, eng *engine.Engine, profiles *Profiles) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		store:    st,
		engine:   eng,
		profiles: profiles,
	}
}

// DeliverSpec describes one cohort delivery.
type DeliverSpec struct {
	Project     string
	CohortPath  string   // master cohort sample list
	Exclusions  []string // exclusion lists (csv/tsv/txt/xlsx); empty skips filtering
	BatchDir    string   // directory holding the source batch filesets
	DeliveryDir string   // override; default <pipeline.delivery_dir>/<project>
	Transfer    bool     // stage the delivery directory after the manifest
}

// settings are the per-delivery knobs after profile resolution.
type settings struct {
	convertVCF bool
	filter     cohort.LoadOptions
	transfer   transfer.Options
}

// Deliver runs the full delivery for one project cohort: it creates the
// run record, executes filter, merge engine, manifest, and transfer
// stages against a shared tracker, and records the terminal status. The
// report is returned whatever the outcome.
func (p *Pipeline) Deliver(ctx context.Context, spec DeliverSpec) (*model.RunReport, error) {
	run, err := engine.CreateRun(ctx, p.store, spec.Project)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	tr := engine.NewTracker(p.store, run)
	err = p.deliver(ctx, tr, spec)
	tr.Finish(ctx, err)
	return tr.Report(), err
}

func (p *Pipeline) deliver(ctx context.Context, tr *engine.Tracker, spec DeliverSpec) error {
	log := zap.L().With(zap.String("run_id", tr.RunID()), zap.String("project", spec.Project))
	log.Info("starting delivery",
		zap.String("cohort", spec.CohortPath),
		zap.Strings("exclusions", spec.Exclusions),
		zap.String("batch_dir", spec.BatchDir))

	st := p.resolve(spec.Project)
	report := tr.Report()
	runDir := filepath.Join(p.cfg.Pipeline.WorkDir, tr.RunID())

	deliveryDir := spec.DeliveryDir
	if deliveryDir == "" {
		deliveryDir = filepath.Join(p.cfg.Pipeline.DeliveryDir, spec.Project)
	}

	keepPath := spec.CohortPath
	if len(spec.Exclusions) > 0 {
		err := tr.Stage(ctx, "filter", func() (*model.Stage, error) {
			excl, err := cohort.LoadExclusions(spec.Exclusions, st.filter)
			if err != nil {
				return nil, err
			}
			filtered := filepath.Join(runDir, "cohort_filtered.txt")
			rep, err := cohort.Apply(spec.CohortPath, excl, filtered)
			if err != nil {
				return nil, err
			}
			keepPath = filtered
			report.SamplesExcluded = rep.Removed()
			return &model.Stage{
				Detail: fmt.Sprintf("removed %d of %d samples, %d remain",
					rep.Removed(), rep.OriginalCount, rep.FinalCount),
			}, nil
		})
		if err != nil {
			return err
		}
	}

	_, err := p.engine.Execute(ctx, tr, engine.MergeSpec{
		Project:     spec.Project,
		BatchDir:    spec.BatchDir,
		KeepPath:    keepPath,
		DeliveryDir: deliveryDir,
		ConvertVCF:  st.convertVCF,
	})
	if err != nil {
		return err
	}

	err = tr.Stage(ctx, "manifest", func() (*model.Stage, error) {
		m, err := manifest.Generate(deliveryDir, spec.Project)
		if err != nil {
			return nil, err
		}
		if err := m.Write(filepath.Join(deliveryDir, "MANIFEST.tsv")); err != nil {
			return nil, err
		}
		extra := map[string]string{
			"Run_ID":        tr.RunID(),
			"Sample_Count":  fmt.Sprintf("%d", report.FinalSampleCount),
			"Variant_Count": fmt.Sprintf("%d", report.FinalVariantCount),
		}
		if err := m.WriteStatusSummary(filepath.Join(deliveryDir, "STATUS_SUMMARY.tsv"), extra); err != nil {
			return nil, err
		}
		return &model.Stage{
			Detail: fmt.Sprintf("%d files, %d bytes", m.TotalFiles(), m.TotalBytes()),
		}, nil
	})
	if err != nil {
		return err
	}

	if spec.Transfer {
		err = tr.Stage(ctx, "transfer", func() (*model.Stage, error) {
			rep, err := transfer.NewSender(st.transfer).Send(ctx, deliveryDir, spec.Project)
			if err != nil {
				return nil, err
			}
			report.DeliveredTo = rep.DestinationDir
			return &model.Stage{
				Detail: fmt.Sprintf("%d files (%d bytes) to %s via %s",
					rep.FileCount, rep.TotalBytes, rep.DestinationDir, rep.Method),
			}, nil
		})
		if err != nil {
			return err
		}
	} else {
		_ = tr.Stage(ctx, "transfer", func() (*model.Stage, error) {
			return &model.Stage{Status: model.StageStatusSkipped, Detail: "transfer disabled"}, nil
		})
	}

	log.Info("delivery complete",
		zap.String("delivery_dir", deliveryDir),
		zap.Int("samples", report.FinalSampleCount),
		zap.Int("variants", report.FinalVariantCount),
		zap.String("staged_to", report.DeliveredTo))
	return nil
}

// resolve builds the effective settings for a project: global config
// overlaid by the project's profile, if one exists.
func (p *Pipeline) resolve(project string) settings {
	s := settings{
		convertVCF: p.cfg.Pipeline.ConvertVCF,
		filter: cohort.LoadOptions{
			IDColumn:     p.cfg.Filter.IDColumn,
			ReasonColumn: p.cfg.Filter.ReasonColumn,
			Sheet:        p.cfg.Filter.Sheet,
			Encoding:     p.cfg.Filter.Encoding,
		},
		transfer: transfer.Options{
			Method:      p.cfg.Transfer.Method,
			StagingRoot: p.cfg.Transfer.StagingRoot,
			ChmodDirs:   p.cfg.Transfer.ChmodDirs,
			ChmodFiles:  p.cfg.Transfer.ChmodFiles,
			FTP: transfer.FTPOptions{
				Host:     p.cfg.Transfer.FTPAddr,
				User:     p.cfg.Transfer.FTPUser,
				Password: p.cfg.Transfer.FTPPassword,
			},
		},
	}
	if p.profiles == nil {
		return s
	}

	prof := p.profiles.For(project)
	if prof.ConvertVCF != nil {
		s.convertVCF = *prof.ConvertVCF
	}
	if prof.Filter.IDColumn != "" {
		s.filter.IDColumn = prof.Filter.IDColumn
	}
	if prof.Filter.ReasonColumn != "" {
		s.filter.ReasonColumn = prof.Filter.ReasonColumn
	}
	if prof.Filter.Sheet != nil {
		s.filter.Sheet = *prof.Filter.Sheet
	}
	if prof.Filter.Encoding != "" {
		s.filter.Encoding = prof.Filter.Encoding
	}
	if prof.Transfer.Method != "" {
		s.transfer.Method = prof.Transfer.Method
	}
	if prof.Transfer.StagingRoot != "" {
		s.transfer.StagingRoot = prof.Transfer.StagingRoot
	}
	if prof.Transfer.ChmodDirs != "" {
		s.transfer.ChmodDirs = prof.Transfer.ChmodDirs
	}
	if prof.Transfer.ChmodFiles != "" {
		s.transfer.ChmodFiles = prof.Transfer.ChmodFiles
	}
	return s
}
