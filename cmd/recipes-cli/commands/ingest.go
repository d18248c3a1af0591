package commands

import (
	"context"
	"log/slog"
	"os"
	"recipes-backend/internal/admin"
	"recipes-backend/internal/ingest"
	"recipes-backend/internal/notify"
	"recipes-backend/lib/serviceutil"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var startPage *int
var pollInterval *time.Duration

func init() {
	startPage = ingestCmd.Flags().Int("start-page", 0, "The page of the recipe lists to start from.")
	pollInterval = ingestCmd.Flags().Duration("poll", time.Second, "How often progress is reported.")
	rootCmd.AddCommand(ingestCmd)
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [site...]",
	Short: "Scrapes recipes from the given sites (default: configured sites) and prints a summary.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		res, err := state.api.StartIngestion(ctx, &admin.StartIngestionRequest{
			Sites:      args,
			StartPage:  *startPage,
			LanguageId: *languageId,
		})
		if err != nil {
			serviceutil.Fatal("start ingestion", err)
		}
		slog.Info("ingestion started", "run_id", res.RunId, "sites", res.Sites)

		status := waitForRun(ctx, *pollInterval)
		printSummaries(runReport(status))
		if runReport(status).Failed() {
			os.Exit(1)
		}
	},
}

// waitForRun polls the run until it finishes, cancelling ctx stops the run
// and keeps waiting for the loaders to return.
func waitForRun(ctx context.Context, interval time.Duration) *admin.GetStatusResponse {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	stopping := false
	for {
		status, err := state.api.GetStatus(context.Background())
		if err != nil {
			serviceutil.Fatal("get status", err)
		}
		if !status.Working {
			return status
		}
		for _, site := range status.Sites {
			slog.Info(
				"progress",
				"site", site.Site,
				"persisted", site.Summary.Persisted,
				"dropped", site.Summary.Dropped,
				"skipped", site.Summary.SkippedElements+site.Summary.SkippedPages,
			)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			if !stopping {
				slog.Info("stopping ingestion")
				_, err := state.api.StopIngestion(context.Background())
				if err != nil {
					serviceutil.Fatal("stop ingestion", err)
				}
				stopping = true
			}
			<-ticker.C
		}
	}
}

func runReport(status *admin.GetStatusResponse) ingest.RunReport {
	report := ingest.RunReport{Id: status.RunId}
	for _, site := range status.Sites {
		summary := site.Summary
		report.Summaries = append(report.Summaries, summary)
		if report.StartedAt.IsZero() || summary.StartedAt.Before(report.StartedAt) {
			report.StartedAt = summary.StartedAt
		}
		finishedAt := summary.StartedAt.Add(summary.Duration)
		if finishedAt.After(report.FinishedAt) {
			report.FinishedAt = finishedAt
		}
	}
	return report
}

func printSummaries(report ingest.RunReport) {
	t := notify.SummaryTable(report)
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.Render()
}
