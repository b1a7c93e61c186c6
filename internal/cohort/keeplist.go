// Package cohort loads participant sample lists and applies exclusion
// filtering. Withdrawn participants must never appear in a delivery, so
// filtering removes a sample when either of its identifiers matches an
// exclusion entry.
package cohort

import (
	"bufio"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/nbr-bioinformatics/cohort-cli/internal/model"
)

// LoadKeepList reads a cohort sample file. Each non-blank line names one
// sample, either as a single identifier (used for both FID and IID) or as
// whitespace-delimited FID and IID columns; extra columns are ignored.
func LoadKeepList(path string) (model.KeepList, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.KeepList{}, eris.Wrapf(err, "cohort: open keep list %s", path)
	}
	defer f.Close()

	var samples []model.SampleID
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		switch {
		case len(fields) == 0:
			continue
		case len(fields) == 1:
			samples = append(samples, model.SampleID{FID: fields[0], IID: fields[0]})
		default:
			samples = append(samples, model.SampleID{FID: fields[0], IID: fields[1]})
		}
	}
	if err := scanner.Err(); err != nil {
		return model.KeepList{}, eris.Wrapf(err, "cohort: read keep list %s", path)
	}
	if len(samples) == 0 {
		return model.KeepList{}, eris.Errorf("cohort: keep list %s has no samples", path)
	}

	return model.KeepList{Path: path, Samples: samples}, nil
}

// WriteKeepList writes a sample list in the two-column FID/IID form the
// genotype tool expects for --keep.
func WriteKeepList(path string, list model.KeepList) error {
	var b strings.Builder
	for _, s := range list.Samples {
		b.WriteString(s.FID)
		b.WriteByte('\t')
		b.WriteString(s.IID)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return eris.Wrapf(err, "cohort: write keep list %s", path)
	}
	return nil
}
