package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nbr-bioinformatics/cohort-cli/internal/engine"
	"github.com/nbr-bioinformatics/cohort-cli/internal/pipeline"
	"github.com/nbr-bioinformatics/cohort-cli/internal/plink"
	"github.com/nbr-bioinformatics/cohort-cli/internal/resilience"
	"github.com/nbr-bioinformatics/cohort-cli/internal/store"
)

// pipelineEnv holds the initialized store, engine, and delivery pipeline
// shared by the deliver and merge commands.
type pipelineEnv struct {
	Store    store.Store
	Engine   *engine.Engine
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline sets up the store, the genotype tool runner, and the
// delivery pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Validate("run"); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	runner := plink.NewExecRunner(cfg.Plink.Path, time.Duration(cfg.Plink.TimeoutSecs)*time.Second)

	retry := resilience.DefaultRetryConfig()
	if cfg.Plink.RetryAttempts > 0 {
		retry.MaxAttempts = cfg.Plink.RetryAttempts
	}

	eng := engine.New(runner, st, engine.Options{
		WorkDir:     cfg.Pipeline.WorkDir,
		Concurrency: cfg.Merge.Concurrency,
		LaunchRate:  cfg.Merge.LaunchRate,
		Retry:       retry,
	})

	var profiles *pipeline.Profiles
	if cfg.Pipeline.Profiles != "" {
		profiles, err = pipeline.LoadProfiles(cfg.Pipeline.Profiles)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		zap.L().Info("delivery profiles loaded",
			zap.String("path", cfg.Pipeline.Profiles),
			zap.Int("projects", len(profiles.Projects)))
	}

	return &pipelineEnv{
		Store:    st,
		Engine:   eng,
		Pipeline: pipeline.New(cfg, st, eng, profiles),
	}, nil
}
