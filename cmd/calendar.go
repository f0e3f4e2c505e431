package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kigurumi-cli/calendar"
)

type CalendarOutput struct {
	Filter     string        `json:"filter"`
	LeadDays   int           `json:"lead_days"`
	Degraded   bool          `json:"degraded"`
	Selectable []string      `json:"selectable"`
	Grid       calendar.Grid `json:"grid"`
}

func calendarCmd() *cobra.Command {
	var month string
	var item string
	var concierge bool

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show the availability calendar for a month",
		RunE: func(cmd *cobra.Command, args []string) error {
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

				today := app.Engine.Today()
				window := app.Engine.Window()
				year, mon := calendar.InitialMonth(today, window)
				if month != "" {
					if year, mon, err = parseMonthInput(month); err != nil {
						return err
					}
				}

				grid := calendar.RenderMonth(year, mon, today, window, app.Engine, filter)
				output := CalendarOutput{
					Filter:     filter.String(),
					LeadDays:   window.LeadDays,
					Degraded:   app.Engine.Degraded(),
					Selectable: grid.Selectable(),
					Grid:       grid,
				}

				if outputJSON {
					return writeJSON(output)
				}
				return renderCalendar(output)
			})
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "Month (YYYY-MM, default: first bookable month)")
	cmd.Flags().StringVar(&item, "item", "", "Item ID, number or prefix")
	cmd.Flags().BoolVar(&concierge, "concierge", false, "Concierge only")
	return cmd
}

func renderCalendar(output CalendarOutput) error {
	printDegradedBanner(output.Degraded)
	printAdvanceNotice(calendar.LeadTimeWindow{LeadDays: output.LeadDays})

	if outputCompact {
		fmt.Printf("%d-%02d %s: %s\n", output.Grid.Year, output.Grid.Month, output.Filter, strings.Join(output.Selectable, " "))
		return nil
	}

	fmt.Printf("%s %d (%s)\n", output.Grid.Month, output.Grid.Year, output.Filter)
	writer := tabwriter.NewWriter(os.Stdout, 4, 0, 1, ' ', tabwriter.AlignRight)
	fmt.Fprintln(writer, "Su\tMo\tTu\tWe\tTh\tFr\tSa\t")
	for _, week := range output.Grid.Weeks {
		blank := true
		cells := make([]string, 0, len(week))
		for _, cell := range week {
			if cell.Day > 0 {
				blank = false
			}
			cells = append(cells, cellLabel(cell))
		}
		if blank {
			continue
		}
		fmt.Fprintln(writer, strings.Join(cells, "\t")+"\t")
	}
	if err := writer.Flush(); err != nil {
		return err
	}
	fmt.Println("o available  x booked  - outside booking window  [ ] today")
	return nil
}

func cellLabel(cell calendar.Cell) string {
	var mark string
	switch cell.Kind {
	case calendar.LeadingBlank, calendar.TrailingBlank:
		return ""
	case calendar.AvailableCell:
		mark = "o"
	case calendar.BookedCell:
		mark = "x"
	default:
		mark = "-"
	}
	label := fmt.Sprintf("%d%s", cell.Day, mark)
	if cell.Today {
		label = "[" + label + "]"
	}
	return label
}
