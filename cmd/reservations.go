package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kigurumi-cli/api"
)

func reservationsCmd() *cobra.Command {
	var from string
	var status string
	var xlsxPath string

	cmd := &cobra.Command{
		Use:   "reservations",
		Short: "List reservations held by the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			if from != "" {
				parsed, err := parseDateInput(from)
				if err != nil {
					return err
				}
				from = parsed.Format("2006-01-02")
			}

			return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				if err := app.RequireSession(ctx); err != nil {
					return err
				}
				records, err := app.Backend.FetchReservations(ctx)
				if err != nil {
					return fmt.Errorf("fetch reservations: %w", err)
				}
				records = filterReservations(records, from, status)

				if xlsxPath != "" {
					if err := exportReservationsXLSX(xlsxPath, records); err != nil {
						return err
					}
					app.Logger.Info("reservations exported", zap.String("path", xlsxPath), zap.Int("count", len(records)))
				}

				if outputJSON {
					return writeJSON(records)
				}
				if len(records) == 0 {
					fmt.Println("No reservations found.")
					return nil
				}

				writer := newTable()
				if !outputCompact {
					fmt.Fprintln(writer, "DATE\tITEM\tOFFICE\tPLACE\tCONCIERGE\tSTATUS")
				}
				for _, r := range records {
					fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Date, r.Character, r.Office, r.Place, r.Concierge, r.StatusLabel())
				}
				return writer.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Only reservations on or after this date")
	cmd.Flags().StringVar(&status, "status", "", "Only this status (confirmed, pending)")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Also export to this .xlsx file")
	return cmd
}

func filterReservations(records []api.ReservationRecord, from, status string) []api.ReservationRecord {
	out := make([]api.ReservationRecord, 0, len(records))
	for _, r := range records {
		if from != "" && r.Date < from {
			continue
		}
		if status != "" && r.StatusLabel() != status {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out
}
