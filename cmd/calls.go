package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kigurumi-cli/storage"
)

func callsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calls",
		Short: "Inspect the local journal of backend calls",
	}

	cmd.AddCommand(callsListCmd())
	cmd.AddCommand(callsStatsCmd())
	cmd.AddCommand(callsPruneCmd())
	return cmd
}

func journalFilter(from, to, action, outcome string) (storage.CallFilter, error) {
	filter := storage.CallFilter{Action: action, Outcome: outcome}
	if from != "" {
		date, err := parseDateInput(from)
		if err != nil {
			return filter, err
		}
		filter.From = date.Format(time.RFC3339)
	}
	if to != "" {
		date, err := parseDateInput(to)
		if err != nil {
			return filter, err
		}
		filter.To = date.AddDate(0, 0, 1).Format(time.RFC3339)
	}
	if filter.From != "" && filter.To != "" && filter.From >= filter.To {
		return filter, fmt.Errorf("--from must be on or before --to")
	}
	return filter, nil
}

func callsListCmd() *cobra.Command {
	var from, to, action, outcome string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent backend calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := journalFilter(from, to, action, outcome)
			if err != nil {
				return err
			}
			filter.Limit = limit

			db, err := storage.OpenJournalDB()
			if err != nil {
				return err
			}
			defer db.Close()

			entries, err := storage.ListCalls(db, filter)
			if err != nil {
				return err
			}

			if outputJSON {
				return writeJSON(entries)
			}
			if len(entries) == 0 {
				fmt.Println("No calls recorded.")
				return nil
			}

			writer := newTable()
			if !outputCompact {
				fmt.Fprintln(writer, "STARTED\tACTION\tOUTCOME\tDURATION\tCALLBACK")
			}
			for _, e := range entries {
				fmt.Fprintf(writer, "%s\t%s\t%s\t%dms\t%s\n", e.StartedAt, e.Action, e.Outcome, e.DurationMS, e.Callback)
			}
			return writer.Flush()
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "End date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&action, "action", "", "Only this action")
	cmd.Flags().StringVar(&outcome, "outcome", "", "Only this outcome (ok, timeout, load_fault, canceled, error)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of calls")
	return cmd
}

func callsStatsCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize backend calls per action",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := journalFilter(from, to, "", "")
			if err != nil {
				return err
			}

			db, err := storage.OpenJournalDB()
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := storage.CallStats(db, filter)
			if err != nil {
				return err
			}

			if outputJSON {
				return writeJSON(stats)
			}
			if len(stats) == 0 {
				fmt.Println("No calls recorded.")
				return nil
			}

			writer := newTable()
			fmt.Fprintln(writer, "ACTION\tCALLS\tFAILED\tTIMEOUTS\tAVG\tLAST")
			for _, s := range stats {
				fmt.Fprintf(writer, "%s\t%d\t%d\t%d\t%.0fms\t%s\n", s.Action, s.Calls, s.Failures, s.Timeouts, s.AvgDurationMS, s.LastCall)
			}
			return writer.Flush()
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "End date (YYYY-MM-DD)")
	return cmd
}

func callsPruneCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old journal entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}

			db, err := storage.OpenJournalDB()
			if err != nil {
				return err
			}
			defer db.Close()

			removed, err := storage.PruneCalls(db, time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d calls.\n", removed)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age of entries to delete")
	return cmd
}
