package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"subsea_intel/pkg/core/ingest"
	"subsea_intel/pkg/models"
)

var (
	importFile string
	importType string
)

var importCmd = &cobra.Command{
	Use:   "import [job-id]",
	Short: "Process an import job, or upload --file and process it",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "spreadsheet or PDF to upload as a new job")
	importCmd.Flags().StringVar(&importType, "type", "", "pdf_contracts or pdf_report for PDF uploads")
}

func runImport(cmd *cobra.Command, args []string) error {
	if (len(args) == 0) == (importFile == "") {
		return errors.New("give either a job id or --file")
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 20*time.Minute)
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	jobID := ""
	if len(args) == 1 {
		jobID = args[0]
	} else {
		data, err := os.ReadFile(importFile)
		if err != nil {
			return err
		}
		job, err := a.Ingest.CreateJob(ctx, ingest.JobInput{Type: importType, FileName: filepath.Base(importFile), Data: data})
		if err != nil {
			return err
		}
		faint.Printf("created %s job %s\n", job.JobType, job.ID)
		jobID = job.ID
	}

	job, err := a.Ingest.ProcessImportJob(ctx, jobID)
	printJob(job)
	if err != nil && job.Status != models.StatusFailed {
		return err
	}
	if job.Status == models.StatusFailed {
		return fmt.Errorf("import failed")
	}
	return nil
}

func printJob(job models.ImportJob) {
	heading.Printf("%s  %s\n", job.ID, job.FileName)
	status := ok
	if job.Status == models.StatusFailed {
		status = warn
	}
	status.Printf("  status    %s\n", job.Status)
	fmt.Printf("  records   %d total, %d imported, %d skipped\n", job.RecordsTotal, job.RecordsImported, job.RecordsSkipped)
	if job.BatchID != nil {
		fmt.Printf("  batch     %s\n", *job.BatchID)
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		warn.Printf("  error     %s\n", *job.ErrorMessage)
	}
}
