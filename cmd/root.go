package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kilianp07/platoon/app"
	"github.com/kilianp07/platoon/config"
	"github.com/kilianp07/platoon/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "platoon",
	Short: "Platoon coordination service",
	PersistentPreRun: func(*cobra.Command, []string) {
		// A missing .env file is not an error.
		_ = godotenv.Load()
	},
	RunE: run,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the platoon manager against the configured simulator",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.AddCommand(serveCmd)
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return runService(ctx, cfg)
}

func runService(ctx context.Context, cfg *config.Config) error {
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}
