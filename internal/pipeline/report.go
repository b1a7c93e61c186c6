package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/nbr-bioinformatics/cohort-cli/internal/model"
)

// reportColumns is the stage table column order in the TSV report.
var reportColumns = []string{"Stage", "Status", "Detail", "Duration_ms", "Error"}

// FormatReport renders a run report as human-readable text.
func FormatReport(r *model.RunReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Delivery Report: %s\n", r.Project)
	fmt.Fprintf(&b, "Run ID: %s\n", r.RunID)
	fmt.Fprintf(&b, "Status: %s\n\n", r.Status)

	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- Batches merged: %d\n", r.BatchCount)
	fmt.Fprintf(&b, "- Samples requested: %d\n", r.SamplesRequested)
	if r.SamplesExcluded > 0 {
		fmt.Fprintf(&b, "- Samples excluded by filter: %d\n", r.SamplesExcluded)
	}
	if r.CorrectionApplied {
		fmt.Fprintf(&b, "- Conflicting variants excluded: %d\n", r.ConflictCount)
	}
	fmt.Fprintf(&b, "- Final cohort: %d samples, %d variants\n",
		r.FinalSampleCount, r.FinalVariantCount)
	if r.OutputPrefix != "" {
		fmt.Fprintf(&b, "- Output: %s\n", r.OutputPrefix)
	}
	if r.VCFPath != "" {
		fmt.Fprintf(&b, "- VCF: %s\n", r.VCFPath)
	}
	if r.DeliveredTo != "" {
		fmt.Fprintf(&b, "- Staged to: %s\n", r.DeliveredTo)
	}
	if !r.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "- Elapsed: %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
	b.WriteString("\n")

	b.WriteString("## Stages\n")
	for _, s := range r.Stages {
		fmt.Fprintf(&b, "- %s: %s (%dms)\n", s.Name, s.Status, s.Duration)
		if s.Detail != "" {
			fmt.Fprintf(&b, "  %s\n", s.Detail)
		}
		if s.Error != "" {
			fmt.Fprintf(&b, "  Error: %s\n", s.Error)
		}
	}

	if r.Error != "" {
		fmt.Fprintf(&b, "\n## Error\n%s\n", r.Error)
	}

	return b.String()
}

// WriteReportTSV writes the run's stage table as a TSV file, one row per
// stage, for archival alongside the delivered data.
func WriteReportTSV(outputPath string, r *model.RunReport) error {
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return eris.Wrapf(err, "pipeline: create report directory %s", dir)
		}
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return eris.Wrapf(err, "pipeline: create report %s", outputPath)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'

	rows := [][]string{reportColumns}
	for _, s := range r.Stages {
		rows = append(rows, []string{
			s.Name,
			string(s.Status),
			s.Detail,
			strconv.FormatInt(s.Duration, 10),
			s.Error,
		})
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return eris.Wrapf(err, "pipeline: write report %s", outputPath)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "pipeline: flush report %s", outputPath)
	}
	return nil
}
