package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kigurumi-cli/calendar"
	"kigurumi-cli/metrics"
)

const clearScreen = "\033[H\033[2J"

func watchCmd() *cobra.Command {
	var interval time.Duration
	var item string
	var concierge bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the calendar on screen, refreshing periodically",
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval < 10*time.Second {
				return fmt.Errorf("--interval must be at least 10s")
			}

			return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
				filter, err := filterFromFlags(app.Engine.Catalog(), item, concierge)
				if err != nil {
					return err
				}
				if err := app.RequireSession(ctx); err != nil {
					return err
				}

				g, ctx := errgroup.WithContext(ctx)
				if addr := app.Config.Metrics.Addr; addr != "" {
					g.Go(func() error {
						return metrics.Serve(ctx, addr, app.Logger.Named("metrics"))
					})
				}
				g.Go(func() error {
					return watchLoop(ctx, app, filter, interval)
				})

				err = g.Wait()
				if ctx.Err() != nil && cmd.Context().Err() != nil {
					return nil
				}
				return err
			})
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "Refresh interval")
	cmd.Flags().StringVar(&item, "item", "", "Item ID, number or prefix")
	cmd.Flags().BoolVar(&concierge, "concierge", false, "Concierge only")
	return cmd
}

func watchLoop(ctx context.Context, app *App, filter calendar.Filter, interval time.Duration) error {
	if err := app.Bootstrap(ctx); err != nil {
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		// The session may lapse while the display is up.
		if err := app.RequireSession(ctx); err != nil {
			return err
		}

		today := app.Engine.Today()
		window := app.Engine.Window()
		year, month := calendar.InitialMonth(today, window)
		grid := calendar.RenderMonth(year, month, today, window, app.Engine, filter)
		output := CalendarOutput{
			Filter:     filter.String(),
			LeadDays:   window.LeadDays,
			Degraded:   app.Engine.Degraded(),
			Selectable: grid.Selectable(),
			Grid:       grid,
		}

		if outputJSON {
			if err := writeJSON(output); err != nil {
				return err
			}
		} else {
			fmt.Print(clearScreen)
			if err := renderCalendar(output); err != nil {
				return err
			}
			fmt.Printf("Updated %s, next refresh in %s.\n", app.Engine.UpdatedAt().Format("15:04:05"), interval)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if err := app.Engine.Refresh(ctx); err != nil {
			return err
		}
		app.Engine.LoadWindow(ctx)
		app.Logger.Debug("watch refreshed", zap.Int("dates", app.Engine.Len()), zap.Bool("degraded", app.Engine.Degraded()))
	}
}
