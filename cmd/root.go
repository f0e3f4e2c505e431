package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kigurumi-cli/config"
	"kigurumi-cli/logger"
)

var (
	outputJSON    bool
	outputCompact bool
	verbose       bool
	configFile    string
	metricsAddr   string

	cfg = config.Default()
	log = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "kigurumi",
	Short: "Kigurumi reservation desk CLI",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if outputJSON && outputCompact {
			return fmt.Errorf("choose either --json or --compact")
		}

		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}
		cfg = loaded
		if metricsAddr != "" {
			cfg.Metrics.Addr = metricsAddr
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		l, err := logger.New(level)
		if err != nil {
			return err
		}
		log = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
	SilenceUsage: true,
}

func Execute() {
	rootCmd.AddCommand(calendarCmd())
	rootCmd.AddCommand(itemsCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(bookCmd())
	rootCmd.AddCommand(reservationsCmd())
	rootCmd.AddCommand(callsCmd())
	rootCmd.AddCommand(authCmd())
	rootCmd.AddCommand(watchCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output JSON")
	rootCmd.PersistentFlags().BoolVar(&outputCompact, "compact", false, "Output compact text")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: ~/.config/kigurumi/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
}
