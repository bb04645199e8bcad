package config

import (
	"fmt"

	"github.com/kilianp07/platoon/infra/simctl"
)

// Simulator transports.
const (
	TransportMQTT   = "mqtt"
	TransportMemory = "memory"
)

// SimulatorConfig selects how the manager reaches the motion simulator.
type SimulatorConfig struct {
	// Transport is "mqtt" for a remote simulator bridge or "memory" for the
	// built-in road simulator.
	Transport string        `json:"transport"`
	MQTT      simctl.Config `json:"mqtt"`
	// Scenario is the YAML scenario loaded into the memory simulator.
	Scenario string `json:"scenario"`
	// StepLengthMS is the memory simulator step when the scenario sets none.
	StepLengthMS int `json:"step_length_ms"`
}

func (c *SimulatorConfig) SetDefaults() {
	if c.Transport == "" {
		c.Transport = TransportMemory
	}
	if c.StepLengthMS <= 0 {
		c.StepLengthMS = 100
	}
	if c.Transport == TransportMQTT {
		c.MQTT.SetDefaults()
	}
}

func (c SimulatorConfig) Validate() error {
	switch c.Transport {
	case TransportMQTT:
		return c.MQTT.Validate()
	case TransportMemory:
		return nil
	}
	return fmt.Errorf("unknown transport %q", c.Transport)
}
