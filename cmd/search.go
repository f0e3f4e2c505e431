package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type SearchResult struct {
	Filter   string   `json:"filter"`
	From     string   `json:"from"`
	Degraded bool     `json:"degraded"`
	Dates    []string `json:"dates"`
}

func searchCmd() *cobra.Command {
	var item string
	var concierge bool
	var from string
	var limit int

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find the next bookable dates",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			start := time.Time{}
			if from != "" {
				parsed, err := parseDateInput(from)
				if err != nil {
					return err
				}
				start = parsed
			}

			return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				filter, err := filterFromFlags(app.Engine.Catalog(), item, concierge)
				if err != nil {
					return err
				}
				if err := app.RequireSession(ctx); err != nil {
					return err
				}
				if err := app.Bootstrap(ctx); err != nil {
					return err
				}

				if start.IsZero() {
					start = app.Engine.Window().First(app.Engine.Today())
				}
				result := SearchResult{
					Filter:   filter.String(),
					From:     start.Format("2006-01-02"),
					Degraded: app.Engine.Degraded(),
					Dates:    app.Engine.NextAvailable(start, filter, limit),
				}

				if outputJSON {
					return writeJSON(result)
				}

				printDegradedBanner(result.Degraded)
				if len(result.Dates) == 0 {
					fmt.Printf("No bookable dates for %s.\n", result.Filter)
					return nil
				}
				if outputCompact {
					fmt.Println(strings.Join(result.Dates, " "))
					return nil
				}
				fmt.Printf("Next bookable dates for %s:\n", result.Filter)
				for _, date := range result.Dates {
					parsed, _ := time.Parse("2006-01-02", date)
					fmt.Printf("  %s (%s)\n", date, parsed.Weekday().String()[:3])
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&item, "item", "", "Item ID, number or prefix")
	cmd.Flags().BoolVar(&concierge, "concierge", false, "Concierge only")
	cmd.Flags().StringVar(&from, "from", "", "Search from this date (default: first bookable day)")
	cmd.Flags().IntVar(&limit, "limit", 5, "Number of dates to return")
	return cmd
}
