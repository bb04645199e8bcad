package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/platoon/infra/logger"
	"github.com/kilianp07/platoon/infra/simctl"
)

var bridgeScenario string

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Serve a scenario of the built-in simulator over MQTT",
	Long: "Runs the built-in simulator at wall-clock speed and answers the requests of a " +
		"platoon manager configured with the mqtt transport.",
	RunE: runBridge,
}

func init() {
	bridgeCmd.Flags().StringVar(&bridgeScenario, "scenario", "", "scenario file (required)")
	_ = bridgeCmd.MarkFlagRequired("scenario")
	rootCmd.AddCommand(bridgeCmd)
}

func runBridge(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadOptional(cfgPath)
	if err != nil {
		return err
	}
	sc, err := simctl.LoadScenario(bridgeScenario)
	if err != nil {
		return err
	}
	sim, err := sc.Build()
	if err != nil {
		return err
	}
	mqttCfg := cfg.Simulator.MQTT
	mqttCfg.ClientID = fmt.Sprintf("%s-bridge-%d", mqttCfg.ClientID, time.Now().UnixNano())
	br, err := simctl.NewBridge(mqttCfg, sim)
	if err != nil {
		return fmt.Errorf("bridge: %w", err)
	}
	defer br.Close()

	log := logger.New("bridge")
	log.Infof("serving scenario %q", sc.Name)
	t := time.NewTicker(sim.StepLength())
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		if sc.Duration > 0 && sim.Time() >= sc.Duration {
			log.Infof("scenario %q finished at %s", sc.Name, sim.Time())
			return nil
		}
		now := sim.Advance()
		if err := sc.Apply(sim, now); err != nil {
			log.Warnf("%v", err)
		}
		if err := br.PublishTick(now); err != nil {
			log.Errorf("%v", err)
		}
	}
}
