package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/nbr-bioinformatics/cohort-cli/internal/transfer"
)

var (
	transferDir     string
	transferProject string
	transferMethod  string
)

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Stage a delivery directory for transfer",
	Long:  "Copies a finished delivery directory to the configured staging area (rsync, plain copy, or ftp) and verifies the destination by file count and byte totals.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if transferMethod != "" {
			cfg.Transfer.Method = transferMethod
		}
		if err := cfg.Validate("transfer"); err != nil {
			return err
		}

		sender := transfer.NewSender(transfer.Options{
			Method:      cfg.Transfer.Method,
			StagingRoot: cfg.Transfer.StagingRoot,
			ChmodDirs:   cfg.Transfer.ChmodDirs,
			ChmodFiles:  cfg.Transfer.ChmodFiles,
			FTP: transfer.FTPOptions{
				Host:     cfg.Transfer.FTPAddr,
				User:     cfg.Transfer.FTPUser,
				Password: cfg.Transfer.FTPPassword,
			},
		})

		report, err := sender.Send(ctx, transferDir, transferProject)
		if err != nil {
			return eris.Wrap(err, "transfer")
		}

		fmt.Fprintf(os.Stdout, "Staged %d files (%d bytes) to %s via %s\n",
			report.FileCount, report.TotalBytes, report.DestinationDir, report.Method)
		return nil
	},
}

func init() {
	transferCmd.Flags().StringVar(&transferDir, "dir", "", "delivery directory to stage (required)")
	transferCmd.Flags().StringVar(&transferProject, "project", "", "project identifier (required)")
	transferCmd.Flags().StringVar(&transferMethod, "method", "", "override transfer method (rsync, copy, ftp)")
	_ = transferCmd.MarkFlagRequired("dir")
	_ = transferCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(transferCmd)
}
