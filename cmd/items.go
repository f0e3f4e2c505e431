package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"kigurumi-cli/calendar"
)

type ItemRow struct {
	Number    int    `json:"number"`
	ID        string `json:"id"`
	Concierge bool   `json:"concierge"`
	Available *bool  `json:"available,omitempty"`
}

type ItemsOutput struct {
	Date     string    `json:"date,omitempty"`
	Degraded bool      `json:"degraded,omitempty"`
	Items    []ItemRow `json:"items"`
}

func itemsCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "items",
		Short: "List reservable items, or the candidates for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				catalog := app.Engine.Catalog()
				output := ItemsOutput{Items: make([]ItemRow, 0, len(catalog))}
				for i, item := range catalog {
					output.Items = append(output.Items, ItemRow{Number: i + 1, ID: item.ID, Concierge: item.Concierge()})
				}

				if date != "" {
					target, err := parseDateInput(date)
					if err != nil {
						return err
					}
					if err := app.RequireSession(ctx); err != nil {
						return err
					}
					if err := app.Bootstrap(ctx); err != nil {
						return err
					}
					output.Date = target.Format("2006-01-02")
					output.Degraded = app.Engine.Degraded()

					inWindow := calendar.IsWithinBookableWindow(target, app.Engine.Today(), app.Engine.Window())
					free := map[string]bool{}
					for _, item := range app.Engine.Candidates(output.Date, calendar.FilterAll) {
						free[item.ID] = inWindow
					}
					for i := range output.Items {
						available := free[output.Items[i].ID]
						output.Items[i].Available = &available
					}
				}

				if outputJSON {
					return writeJSON(output)
				}
				return renderItems(output)
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Show candidates for this date (YYYY-MM-DD, today, tomorrow)")
	return cmd
}

func renderItems(output ItemsOutput) error {
	if output.Date != "" {
		printDegradedBanner(output.Degraded)
		fmt.Printf("Date: %s\n", output.Date)
	}

	writer := newTable()
	if !outputCompact {
		if output.Date != "" {
			fmt.Fprintln(writer, "#\tITEM\tAVAILABLE")
		} else {
			fmt.Fprintln(writer, "#\tITEM")
		}
	}
	for _, row := range output.Items {
		if row.Available == nil {
			fmt.Fprintf(writer, "%d\t%s\n", row.Number, row.ID)
			continue
		}
		available := "no"
		if *row.Available {
			available = "yes"
		}
		fmt.Fprintf(writer, "%d\t%s\t%s\n", row.Number, row.ID, available)
	}
	return writer.Flush()
}
