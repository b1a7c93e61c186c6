package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/nbr-bioinformatics/cohort-cli/internal/pipeline"
)

var (
	deliverProject     string
	deliverCohort      string
	deliverExclusions  []string
	deliverBatchDir    string
	deliverDeliveryDir string
	deliverTransfer    bool
	deliverReportPath  string
)

var deliverCmd = &cobra.Command{
	Use:   "deliver",
	Short: "Run a full cohort delivery",
	Long:  "Filters the cohort against exclusion lists, merges all genotype batches, generates integrity manifests, and optionally stages the delivery for transfer.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		report, runErr := env.Pipeline.Deliver(ctx, pipeline.DeliverSpec{
			Project:     deliverProject,
			CohortPath:  deliverCohort,
			Exclusions:  deliverExclusions,
			BatchDir:    deliverBatchDir,
			DeliveryDir: deliverDeliveryDir,
			Transfer:    deliverTransfer,
		})

		// The report is produced whatever the outcome; a failed run's
		// report shows which stage broke.
		if report != nil {
			fmt.Fprintln(os.Stdout, pipeline.FormatReport(report))
			if deliverReportPath != "" {
				if err := pipeline.WriteReportTSV(deliverReportPath, report); err != nil {
					return err
				}
			}
		}

		if runErr != nil {
			return eris.Wrap(runErr, "deliver")
		}
		return nil
	},
}

func init() {
	deliverCmd.Flags().StringVar(&deliverProject, "project", "", "project identifier, e.g. NBR030 (required)")
	deliverCmd.Flags().StringVar(&deliverCohort, "cohort", "", "master cohort sample list (required)")
	deliverCmd.Flags().StringSliceVar(&deliverExclusions, "exclusions", nil, "exclusion list files (csv/tsv/txt/xlsx)")
	deliverCmd.Flags().StringVar(&deliverBatchDir, "batch-dir", "", "directory holding the source batch filesets (required)")
	deliverCmd.Flags().StringVar(&deliverDeliveryDir, "delivery-dir", "", "delivery directory (default <pipeline.delivery_dir>/<project>)")
	deliverCmd.Flags().BoolVar(&deliverTransfer, "transfer", false, "stage the delivery directory after the manifest")
	deliverCmd.Flags().StringVar(&deliverReportPath, "report", "", "also write the stage report as TSV to this path")
	_ = deliverCmd.MarkFlagRequired("project")
	_ = deliverCmd.MarkFlagRequired("cohort")
	_ = deliverCmd.MarkFlagRequired("batch-dir")
	rootCmd.AddCommand(deliverCmd)
}
