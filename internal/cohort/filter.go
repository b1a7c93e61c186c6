package cohort

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nbr-bioinformatics/cohort-cli/internal/model"
)

// Apply removes excluded samples from a cohort list. A sample is removed
// when either its FID or its IID appears in the exclusion set, so a
// withdrawal recorded under either identifier takes effect. The surviving
// samples are written to outputPath in keep-list form; pass an empty
// outputPath to skip writing.
func Apply(cohortPath string, exclusions Exclusions, outputPath string) (model.FilterReport, error) {
	list, err := LoadKeepList(cohortPath)
	if err != nil {
		return model.FilterReport{}, err
	}

	byReason := make(map[string]int)
	survivors := make([]model.SampleID, 0, len(list.Samples))
	for _, s := range list.Samples {
		if reason, ok := exclusions[s.IID]; ok {
			byReason[reason]++
			continue
		}
		if reason, ok := exclusions[s.FID]; ok {
			byReason[reason]++
			continue
		}
		survivors = append(survivors, s)
	}

	report := model.FilterReport{
		OriginalCount:  len(list.Samples),
		ExclusionCount: len(exclusions),
		FinalCount:     len(survivors),
		ByReason:       byReason,
		OutputPath:     outputPath,
	}

	if outputPath != "" {
		if dir := filepath.Dir(outputPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return model.FilterReport{}, eris.Wrapf(err, "cohort: create output directory %s", dir)
			}
		}
		if err := WriteKeepList(outputPath, model.KeepList{Path: outputPath, Samples: survivors}); err != nil {
			return model.FilterReport{}, err
		}
		zap.L().Info("wrote filtered cohort",
			zap.String("path", outputPath),
			zap.Int("original", report.OriginalCount),
			zap.Int("removed", report.Removed()),
			zap.Int("final", report.FinalCount))
	}

	return report, nil
}
