package engine

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nbr-bioinformatics/cohort-cli/internal/model"
)

// correct runs the single correction round for a conflicting merge: it
// renders the conflict set to an exclusion file and derives corrected
// filesets from the original source batches, never from the first round's
// outputs. The rendering is deterministic, so re-running the round over
// the same inputs issues byte-identical files and invocations.
func (e *Engine) correct(ctx context.Context, batches []model.Batch, keepFile, workDir string, conflicts model.ConflictSet) ([]model.ExtractedBatch, error) {
	exclusionFile := filepath.Join(workDir, "exclude_variants.txt")
	if err := os.WriteFile(exclusionFile, []byte(conflicts.Render()), 0644); err != nil {
		return nil, eris.Wrapf(err, "engine: write exclusion file %s", exclusionFile)
	}

	zap.L().Info("correcting merge conflicts",
		zap.Int("excluded_variants", conflicts.Len()),
		zap.String("exclusion_file", exclusionFile))

	return e.extractAll(ctx, batches, keepFile, workDir, "_corrected", exclusionFile)
}
