// Package catalog discovers genotyping batch filesets on disk. Discovery
// is read-only: the source batches are the ground truth every correction
// re-derives from, and nothing in this program ever writes to them.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nbr-bioinformatics/cohort-cli/internal/model"
	"github.com/nbr-bioinformatics/cohort-cli/internal/plink"
)

// ErrNoBatches is returned when a directory holds no batch filesets at all.
var ErrNoBatches = eris.New("catalog: no batch filesets found")

// IncompleteBatchError reports a base name that is missing one or more of
// its three required fileset members.
type IncompleteBatchError struct {
	ID      string
	Missing []string
}

func (e *IncompleteBatchError) Error() string {
	return fmt.Sprintf("catalog: batch %s is missing %s", e.ID, strings.Join(e.Missing, ", "))
}

var extensions = []string{".bed", ".bim", ".fam"}

// Discover scans dir for batch filesets, grouping files by base name. Every
// base name that appears with any of the three extensions must appear with
// all of them; an orphaned index with no genotype matrix is as fatal as the
// reverse. Batches come back sorted by ID.
func Discover(dir string) ([]model.Batch, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read dir %s", dir)
	}

	found := make(map[string]map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		switch ext {
		case ".bed", ".bim", ".fam":
		default:
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ext)
		if found[id] == nil {
			found[id] = make(map[string]bool, 3)
		}
		found[id][ext] = true
	}

	if len(found) == 0 {
		return nil, ErrNoBatches
	}

	ids := make([]string, 0, len(found))
	for id := range found {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	batches := make([]model.Batch, 0, len(ids))
	for _, id := range ids {
		var missing []string
		for _, ext := range extensions {
			if !found[id][ext] {
				missing = append(missing, ext)
			}
		}
		if len(missing) > 0 {
			return nil, &IncompleteBatchError{ID: id, Missing: missing}
		}

		prefix := filepath.Join(dir, id)
		batches = append(batches, model.Batch{
			ID:      id,
			Prefix:  prefix,
			BedPath: prefix + ".bed",
			BimPath: prefix + ".bim",
			FamPath: prefix + ".fam",
		})
	}

	zap.L().Info("discovered batches",
		zap.String("dir", dir),
		zap.Int("count", len(batches)),
	)
	return batches, nil
}

// Stat line-counts a batch's variant and sample indexes.
func Stat(batch model.Batch) (model.BatchStat, error) {
	variants, err := plink.CountLines(batch.BimPath)
	if err != nil {
		return model.BatchStat{}, eris.Wrapf(err, "catalog: stat %s", batch.ID)
	}
	samples, err := plink.CountLines(batch.FamPath)
	if err != nil {
		return model.BatchStat{}, eris.Wrapf(err, "catalog: stat %s", batch.ID)
	}
	return model.BatchStat{
		BatchID:      batch.ID,
		VariantCount: variants,
		SampleCount:  samples,
	}, nil
}
