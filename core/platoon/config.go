package platoon

import (
	"fmt"
	"time"

	"github.com/kilianp07/platoon/core/model"
)

// Config holds the tuning of the control loop.
type Config struct {
	// VehicleTypeSelectors are substrings matched against vehicle type
	// names. An empty list selects every vehicle.
	VehicleTypeSelectors []string `json:"vehicle_type_selectors"`
	// MaxPlatoonGap is the largest gap in metres at which vehicles are
	// considered part of the same platoon. Zero selects the default of 15.
	MaxPlatoonGap float64 `json:"max_platoon_gap"`
	// CatchupDist is the largest gap in metres a platoon leader tries to
	// close by catching up.
	CatchupDist float64 `json:"catchup_dist"`
	// ControlRate is the number of decision cycles per simulated second.
	ControlRate float64 `json:"control_rate"`
	// SplitCountdown is the number of seconds a follower must be eligible
	// for a split before the split happens. Unset selects 3; an explicit 0
	// splits on the first eligible decision cycle.
	SplitCountdown *float64 `json:"split_countdown"`
	// VehicleTypes is the type catalog: type name -> mode name -> params.
	// When empty every selected type uses DefaultModeParams.
	VehicleTypes map[string]map[string]ModeParams `json:"vehicle_types"`
}

// SetDefaults applies defaults to unset fields.
func (c *Config) SetDefaults() {
	if c.MaxPlatoonGap == 0 {
		c.MaxPlatoonGap = 15
	}
	if c.CatchupDist == 0 {
		c.CatchupDist = 50
	}
	if c.ControlRate == 0 {
		c.ControlRate = 1
	}
	if c.SplitCountdown == nil {
		c.SplitCountdown = Seconds(DefaultSplitCountdown)
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.MaxPlatoonGap <= 0 {
		return fmt.Errorf("max_platoon_gap must be positive")
	}
	if c.CatchupDist < c.MaxPlatoonGap {
		return fmt.Errorf("catchup_dist (%g) must not be smaller than max_platoon_gap (%g)", c.CatchupDist, c.MaxPlatoonGap)
	}
	if c.ControlRate <= 0 {
		return fmt.Errorf("control_rate must be positive")
	}
	if c.SplitCountdown != nil && *c.SplitCountdown < 0 {
		return fmt.Errorf("split_countdown must not be negative")
	}
	for typ, modes := range c.VehicleTypes {
		for name, p := range modes {
			if _, err := model.ParseMode(name); err != nil {
				return fmt.Errorf("vehicle type %s: %w", typ, err)
			}
			if p.Decel <= 0 {
				return fmt.Errorf("vehicle type %s mode %s: decel must be positive", typ, name)
			}
			if p.Tau < 0 {
				return fmt.Errorf("vehicle type %s mode %s: tau must not be negative", typ, name)
			}
		}
	}
	return nil
}

// ControlInterval converts the control rate into the period of the decision
// phases. It is never shorter than one simulation step.
func (c Config) ControlInterval(step time.Duration) time.Duration {
	iv := time.Duration(float64(time.Second) / c.ControlRate)
	if iv < step {
		iv = step
	}
	return iv
}

// DefaultSplitCountdown is used when split_countdown is not configured.
const DefaultSplitCountdown = 3.0

// Seconds returns a pointer to s for the optional duration fields.
func Seconds(s float64) *float64 { return &s }

// SplitCountdownDuration returns SplitCountdown as a duration.
func (c Config) SplitCountdownDuration() time.Duration {
	s := DefaultSplitCountdown
	if c.SplitCountdown != nil {
		s = *c.SplitCountdown
	}
	return time.Duration(s * float64(time.Second))
}
