package commands

import (
	"fmt"
	"os"
	"recipes-backend/lib/serviceutil"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statsCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Prints the progress of the current (or last) ingestion run of the server.",
	Run: func(cmd *cobra.Command, args []string) {
		status, err := state.api.GetStatus(cmd.Context())
		if err != nil {
			serviceutil.Fatal("get status", err)
		}
		if status.RunId == "" {
			fmt.Println("No ingestion run has been started.")
			return
		}
		phase := "finished"
		if status.Working {
			phase = "running"
		}
		fmt.Printf("Run %s is %s.\n", status.RunId, phase)
		printSummaries(runReport(status))
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stops the current ingestion run of the server.",
	Run: func(cmd *cobra.Command, args []string) {
		res, err := state.api.StopIngestion(cmd.Context())
		if err != nil {
			serviceutil.Fatal("stop ingestion", err)
		}
		if !res.Stopped {
			fmt.Println("Nothing is running.")
			return
		}
		fmt.Println("Stop requested.")
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints the number of stored recipes per site.",
	Run: func(cmd *cobra.Command, args []string) {
		res, err := state.api.GetStats(cmd.Context())
		if err != nil {
			serviceutil.Fatal("get stats", err)
		}

		var sources []string
		var total int64
		for source, count := range res.RecipesBySource {
			sources = append(sources, source)
			total += count
		}
		slices.Sort(sources)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Site", "Recipes"})
		for _, source := range sources {
			t.AppendRow(table.Row{source, res.RecipesBySource[source]})
		}
		t.AppendFooter(table.Row{"Total", total})
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
