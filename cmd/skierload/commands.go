package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/torosent/skierload/internal/config"
	"github.com/torosent/skierload/internal/history"
	"github.com/torosent/skierload/internal/latencylog"
)

var errNoHistoryDB = errors.New("history database path is required (--db or " + config.EnvPrefix + "_HISTORY_DB)")

func newAnalyzeCommand(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "analyze <latency-log>",
		Short: "Summarize a latency log: mean, p90 and p99 per method",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			analysis, err := latencylog.Analyze(f)
			if err != nil {
				return err
			}
			if len(analysis.Methods) == 0 {
				return fmt.Errorf("%s: no latency lines found", args[0])
			}
			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(analysis)
			}
			latencylog.Print(a.stdout, analysis)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	return cmd
}

func newHistoryCommand(a *app) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs, or show one run in full",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, err := config.NewLoader().HistoryDB(cmd.Flags().Lookup("db"))
			if err != nil {
				return err
			}
			if dbPath == "" {
				return errNoHistoryDB
			}
			store, err := history.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				entry, err := store.Get(args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(entry)
			}

			entries, err := store.List(limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			printHistory(a, entries)
			return nil
		},
	}
	cmd.Flags().String("db", "", "Path of the history database")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 lists all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the runs as JSON")
	return cmd
}

func printHistory(a *app, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(a.stdout, "No runs recorded.")
		return
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tTARGET\tTHREADS\tSUCCESS\tFAIL\tRUNTIME\tREQ/S\tTHRESHOLDS")
	for _, e := range entries {
		verdict := "-"
		if p := e.Summary.ThresholdsPassed; p != nil {
			verdict = "fail"
			if *p {
				verdict = "pass"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%ds\t%d\t%s\n",
			e.ID,
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			e.Target,
			e.Threads,
			e.Summary.Successes,
			e.Summary.Failures,
			e.Summary.RuntimeSeconds,
			e.Summary.Throughput,
			verdict,
		)
	}
	tw.Flush()
}
