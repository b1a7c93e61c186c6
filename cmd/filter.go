package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/nbr-bioinformatics/cohort-cli/internal/cohort"
	"github.com/nbr-bioinformatics/cohort-cli/internal/model"
)

var (
	filterCohort     string
	filterExclusions []string
	filterOut        string
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Filter a cohort list against exclusion lists",
	Long:  "Removes withdrawn or excluded samples from a cohort list and writes the surviving samples in keep-list form. Formats are chosen by extension: csv, tsv, txt, xlsx.",
	RunE: func(cmd *cobra.Command, args []string) error {
		excl, err := cohort.LoadExclusions(filterExclusions, cohort.LoadOptions{
			IDColumn:     cfg.Filter.IDColumn,
			ReasonColumn: cfg.Filter.ReasonColumn,
			Sheet:        cfg.Filter.Sheet,
			Encoding:     cfg.Filter.Encoding,
		})
		if err != nil {
			return eris.Wrap(err, "filter")
		}

		report, err := cohort.Apply(filterCohort, excl, filterOut)
		if err != nil {
			return eris.Wrap(err, "filter")
		}

		formatFilterReport(os.Stdout, report)
		return nil
	},
}

func formatFilterReport(out io.Writer, r model.FilterReport) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Cohort samples:\t%d\n", r.OriginalCount)
	_, _ = fmt.Fprintf(w, "Removed:\t%d\n", r.Removed())
	_, _ = fmt.Fprintf(w, "Remaining:\t%d\n", r.FinalCount)

	reasons := make([]string, 0, len(r.ByReason))
	for reason := range r.ByReason {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", reason, r.ByReason[reason])
	}

	if r.OutputPath != "" {
		_, _ = fmt.Fprintf(w, "Written to:\t%s\n", r.OutputPath)
	}
	_ = w.Flush()
}

func init() {
	filterCmd.Flags().StringVar(&filterCohort, "cohort", "", "cohort sample list (required)")
	filterCmd.Flags().StringSliceVar(&filterExclusions, "exclusions", nil, "exclusion list files (required)")
	filterCmd.Flags().StringVar(&filterOut, "out", "", "output path for the filtered keep list (required)")
	_ = filterCmd.MarkFlagRequired("cohort")
	_ = filterCmd.MarkFlagRequired("exclusions")
	_ = filterCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(filterCmd)
}
