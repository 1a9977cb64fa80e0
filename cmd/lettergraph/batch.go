package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/lettergraph/pkg/batch"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Evaluate many letters from a JSONL file",
	Long: `Reads one request per line (the evaluate request JSON plus an optional "id")
and writes one result per line, in input order. A failing job never stops the
others; its line carries an "error" instead of a "result".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataPath, _ := cmd.Flags().GetString("data")
		graphID, _ := cmd.Flags().GetString("graph")
		outPath, _ := cmd.Flags().GetString("out")
		workers, _ := cmd.Flags().GetInt("workers")
		if !cmd.Flags().Changed("workers") {
			workers = cfg.BatchWorkers
		}

		var in io.Reader = cmd.InOrStdin()
		if dataPath != "-" {
			f, err := os.Open(dataPath)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		jobs, err := batch.DecodeJobs(in)
		if err != nil {
			return fmt.Errorf("read jobs: %w", err)
		}
		for i := range jobs {
			if jobs[i].GraphID == "" {
				jobs[i].GraphID = graphID
			}
		}

		app, err := buildApp()
		if err != nil {
			return err
		}
		defer app.Close()

		items := batch.New(app.Engine, batch.WithWorkers(workers), batch.WithLogger(logger)).Run(cmd.Context(), jobs)
		if redactor != nil {
			for i := range items {
				items[i].Result = redactor.Result(items[i].Result)
			}
		}

		var out io.Writer = cmd.OutOrStdout()
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		if err := batch.EncodeItems(out, items); err != nil {
			return err
		}
		logger.Info("batch finished", "jobs", len(jobs), "workers", workers, "summary", batch.Summary(items))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
	f := batchCmd.Flags()
	f.StringP("data", "d", "-", "JSONL job file, - for stdin")
	f.StringP("graph", "g", "", "Graph id for jobs that do not name one")
	f.StringP("out", "o", "", "Write results to this file instead of stdout")
	f.IntP("workers", "w", batch.DefaultWorkers, "Concurrent evaluations (LETTERGRAPH_BATCH_WORKERS)")
}
