package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/UnknownOlympus/geoplaces/internal/repository"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Inspect stored resolution runs",
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("limit")

		if cfg.DatabaseURL == "" {
			return errors.New("database URL is not configured, set GEOPLACES_DATABASE_URL")
		}

		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}

		repo, closeRepo, err := a.openRepository(ctx)
		if err != nil {
			return err
		}
		defer closeRepo()

		runs, err := repo.ListRuns(ctx, limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		writeRuns(os.Stdout, runs)
		return nil
	},
}

func init() {
	reportListCmd.Flags().Int("limit", 20, "Maximum number of runs to show")
	reportCmd.AddCommand(reportListCmd)
}

func writeRuns(w io.Writer, runs []repository.RunSummary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tPROVIDER\tCOORDINATES\tPLACES\tCREATED")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			run.RunID, run.Provider, run.Coordinates, run.Places,
			run.CreatedAt.Format("2006-01-02 15:04"))
	}
	tw.Flush()
}
