package config

import (
	"fmt"
	"time"
)

// ServiceConfig controls the run loop of the platoon service.
type ServiceConfig struct {
	// RealTime paces the memory simulator at wall-clock speed. When false
	// steps run back to back.
	RealTime bool `json:"real_time"`
	// MaxSteps stops the memory simulator after this many steps; zero runs
	// until the scenario duration elapses or the service is interrupted.
	MaxSteps int `json:"max_steps"`
	// ShutdownTimeoutSeconds bounds the final mode reset on exit.
	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds"`
	// APIAddr enables the status and decision log HTTP API when set.
	APIAddr string `json:"api_addr"`
	// APIToken guards the decision log endpoint with a bearer token.
	APIToken string `json:"api_token"`
}

func (c *ServiceConfig) SetDefaults() {
	if c.ShutdownTimeoutSeconds <= 0 {
		c.ShutdownTimeoutSeconds = 5
	}
}

func (c ServiceConfig) Validate() error {
	if c.MaxSteps < 0 {
		return fmt.Errorf("max_steps must not be negative")
	}
	return nil
}

func (c ServiceConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}
