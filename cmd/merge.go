package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/nbr-bioinformatics/cohort-cli/internal/engine"
	"github.com/nbr-bioinformatics/cohort-cli/internal/pipeline"
)

var (
	mergeProject     string
	mergeKeep        string
	mergeBatchDir    string
	mergeDeliveryDir string
	mergeNoVCF       bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge genotype batches for an already-filtered cohort",
	Long:  "Runs the merge engine alone: extracts the keep list from every batch, merges with one exclusion-based correction round on conflict, and converts to VCF. No manifest or transfer stages.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		deliveryDir := mergeDeliveryDir
		if deliveryDir == "" {
			deliveryDir = cfg.Pipeline.DeliveryDir
		}

		report, runErr := env.Engine.Run(ctx, engine.MergeSpec{
			Project:     mergeProject,
			BatchDir:    mergeBatchDir,
			KeepPath:    mergeKeep,
			DeliveryDir: deliveryDir,
			ConvertVCF:  cfg.Pipeline.ConvertVCF && !mergeNoVCF,
		})

		if report != nil {
			fmt.Fprintln(os.Stdout, pipeline.FormatReport(report))
		}

		if runErr != nil {
			return eris.Wrap(runErr, "merge")
		}
		return nil
	},
}

func init() {
	mergeCmd.Flags().StringVar(&mergeProject, "project", "", "project identifier (required)")
	mergeCmd.Flags().StringVar(&mergeKeep, "keep", "", "cohort sample list to extract (required)")
	mergeCmd.Flags().StringVar(&mergeBatchDir, "batch-dir", "", "directory holding the source batch filesets (required)")
	mergeCmd.Flags().StringVar(&mergeDeliveryDir, "delivery-dir", "", "where the final fileset lands (default pipeline.delivery_dir)")
	mergeCmd.Flags().BoolVar(&mergeNoVCF, "no-vcf", false, "skip VCF conversion")
	_ = mergeCmd.MarkFlagRequired("project")
	_ = mergeCmd.MarkFlagRequired("keep")
	_ = mergeCmd.MarkFlagRequired("batch-dir")
	rootCmd.AddCommand(mergeCmd)
}
