package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/dodf/models"
	"github.com/use-agent/dodf/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run [YYYY-MM-DD]",
	Short: "Collect and export the Notas de Empenho currently listed",
	Long: `Walks the listing, extracts every Nota de Empenho and writes
YYYYMMDD_extrato_notas_empenho_dodf.xlsx to the output directory.
The date only names the file; it defaults to today.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringP("output", "o", "", "output directory (overrides pipeline.output_dir)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	date := time.Now()
	if len(args) == 1 {
		parsed, err := time.ParseInLocation(time.DateOnly, args[0], time.Local)
		if err != nil {
			return fmt.Errorf("invalid date %q: want YYYY-MM-DD", args[0])
		}
		date = parsed
	}
	if out, _ := cmd.Flags().GetString("output"); out != "" {
		cfg.Pipeline.OutputDir = out
	}

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := a.runner.Run(ctx, date)
	if err != nil {
		return err
	}

	printSummary(cmd, result)

	if err := pipeline.Outcome(result); errors.Is(err, pipeline.ErrNothingFound) {
		cmd.Println("Nothing found:", result.Reason)
		return nil
	}
	if result.Status == models.RunFailed {
		return fmt.Errorf("run failed: %s", result.Reason)
	}
	return nil
}

func printSummary(cmd *cobra.Command, r *models.RunResult) {
	cmd.Printf("Date:        %s\n", r.Date)
	cmd.Printf("Status:      %s\n", r.Status)
	cmd.Printf("Links found: %d\n", r.LinksFound)
	cmd.Printf("Processed:   %d (skipped %d, failed %d, duplicates %d)\n",
		r.Processed, r.Skipped, r.Failed, r.Duplicates)
	cmd.Printf("Records:     %d\n", len(r.Records))
	if r.Artifact != "" {
		cmd.Printf("Artifact:    %s\n", r.Artifact)
	}
}
