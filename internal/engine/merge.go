package engine

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nbr-bioinformatics/cohort-cli/internal/model"
	"github.com/nbr-bioinformatics/cohort-cli/internal/plink"
)

// attemptMerge merges the extracted filesets into outPrefix and classifies
// the outcome. The first fileset anchors the merge; the rest go into the
// merge list file. A non-zero exit is read through the conflict report:
//   - report present and non-empty: the batches disagree about those
//     variants (a CONFLICTING result, not an error)
//   - report absent: the tool itself failed (MergeToolError)
//   - report present but empty: the tool contradicted itself; fatal
func (e *Engine) attemptMerge(ctx context.Context, extracted []model.ExtractedBatch, mergeListFile, outPrefix string) (model.MergeResult, error) {
	if len(extracted) < 2 {
		return model.MergeResult{}, &InsufficientBatchesError{Found: len(extracted)}
	}

	prefixes := make([]string, len(extracted))
	for i, ex := range extracted {
		prefixes[i] = ex.Prefix
	}
	if err := plink.WriteMergeList(mergeListFile, prefixes[1:]); err != nil {
		return model.MergeResult{}, err
	}

	res, err := e.runner.Run(ctx, plink.MergeArgs(prefixes[0], mergeListFile, outPrefix)...)
	if err != nil {
		return model.MergeResult{}, err
	}
	if res.Ok() {
		return model.CleanMerge(), nil
	}

	reportPath := plink.ConflictReportPath(outPrefix)
	ids, err := plink.ReadConflictReport(reportPath)
	if errors.Is(err, fs.ErrNotExist) {
		return model.MergeResult{}, &MergeToolError{
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
			TimedOut: res.TimedOut,
		}
	}
	if err != nil {
		return model.MergeResult{}, err
	}
	if len(ids) == 0 {
		return model.MergeResult{}, eris.Errorf(
			"engine: merge exited %d but conflict report %s is empty", res.ExitCode, reportPath)
	}

	zap.L().Info("merge produced conflicts",
		zap.String("out", outPrefix),
		zap.Int("conflicts", len(ids)))
	return model.ConflictingMerge(model.NewConflictSet(ids))
}

// promote moves a finished fileset from the work area to its final prefix.
// The work and delivery directories commonly sit on different volumes, so
// a failed rename falls back to copy-and-remove.
func promote(fromPrefix, toPrefix string) error {
	if dir := filepath.Dir(toPrefix); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return eris.Wrapf(err, "engine: create delivery directory %s", dir)
		}
	}
	for _, ext := range []string{".bed", ".bim", ".fam", ".log"} {
		src := fromPrefix + ext
		if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := moveFile(src, toPrefix+ext); err != nil {
			return err
		}
	}
	return nil
}

func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return eris.Wrapf(err, "engine: move %s", src)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return eris.Wrapf(err, "engine: move %s", src)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return eris.Wrapf(err, "engine: move %s to %s", src, dst)
	}
	if err := out.Close(); err != nil {
		return eris.Wrapf(err, "engine: move %s to %s", src, dst)
	}
	return os.Remove(src)
}
