package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/platoon/config"
)

var (
	simScenario string
	simSteps    int
	simRealTime bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the platoon manager on a scenario with the built-in simulator",
	RunE:  simulate,
}

func init() {
	simulateCmd.Flags().StringVar(&simScenario, "scenario", "", "scenario file (required)")
	simulateCmd.Flags().IntVar(&simSteps, "steps", 0, "stop after this many steps")
	simulateCmd.Flags().BoolVar(&simRealTime, "real-time", false, "pace steps at wall-clock speed")
	_ = simulateCmd.MarkFlagRequired("scenario")
	rootCmd.AddCommand(simulateCmd)
}

func simulate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadOptional(cfgPath)
	if err != nil {
		return err
	}
	cfg.Simulator.Transport = config.TransportMemory
	cfg.Simulator.Scenario = simScenario
	if cmd.Flags().Changed("steps") {
		cfg.Service.MaxSteps = simSteps
	}
	if cmd.Flags().Changed("real-time") {
		cfg.Service.RealTime = simRealTime
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return runService(ctx, cfg)
}

// loadOptional loads path when it exists and returns defaults otherwise.
func loadOptional(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &config.Config{}, nil
		}
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
