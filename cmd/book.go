package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"kigurumi-cli/booking"
)

type BookOutput struct {
	Reservation booking.Reservation `json:"reservation"`
	Success     bool                `json:"success"`
	Message     string              `json:"message"`
}

func bookCmd() *cobra.Command {
	var r booking.Reservation
	var date string

	cmd := &cobra.Command{
		Use:   "book",
		Short: "Submit a reservation",
		RunE: func(cmd *cobra.Command, args []string) error {
			if date != "" {
				parsed, err := parseDateInput(date)
				if err != nil {
					return err
				}
				r.Date = parsed.Format("2006-01-02")
			}

			return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				if r.Item != "" {
					item, err := app.Engine.Catalog().Resolve(r.Item)
					if err != nil {
						return err
					}
					r.Item = item.ID
				}
				if err := app.RequireSession(ctx); err != nil {
					return err
				}
				if err := app.Bootstrap(ctx); err != nil {
					return err
				}
				if app.Engine.Degraded() {
					return fmt.Errorf("reservation server unreachable; availability cannot be confirmed")
				}

				_, err := app.Form.Submit(ctx, r)
				output := BookOutput{Reservation: r, Success: err == nil, Message: booking.Message(err)}
				if outputJSON {
					if jsonErr := writeJSON(output); jsonErr != nil {
						return jsonErr
					}
					return err
				}
				if err != nil {
					return fmt.Errorf("%s", output.Message)
				}

				fmt.Printf("Reserved: %s %s\n", r.Date, r.Item)
				fmt.Printf("%s / %s | %s\n", r.Office, r.Location, r.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Date (YYYY-MM-DD, today, tomorrow)")
	cmd.Flags().StringVar(&r.Item, "item", "", "Item ID, number or prefix")
	cmd.Flags().BoolVar(&r.Concierge, "concierge", false, "Concierge required")
	cmd.Flags().StringVar(&r.Office, "office", "", "Requesting office")
	cmd.Flags().StringVar(&r.Location, "location", "", "Event location")
	cmd.Flags().StringVar(&r.Name, "name", "", "Contact name")
	cmd.Flags().StringVar(&r.Email, "email", "", "Contact email")
	cmd.Flags().StringVar(&r.Phone, "phone", "", "Contact phone")
	cmd.Flags().StringVar(&r.Remarks, "remarks", "", fmt.Sprintf("Remarks (at most %d characters)", booking.MaxRemarks))
	return cmd
}
