package model

import (
	"fmt"
	"strings"
)

// Mode is the control regime a vehicle is assigned to.
type Mode int

const (
	ModeNone Mode = iota
	ModeLeader
	ModeFollower
	ModeCatchup
)

// Modes lists every control regime in declaration order.
var Modes = []Mode{ModeNone, ModeLeader, ModeFollower, ModeCatchup}

// String returns the canonical upper-case name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "NONE"
	case ModeLeader:
		return "LEADER"
	case ModeFollower:
		return "FOLLOWER"
	case ModeCatchup:
		return "CATCHUP"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name into a Mode. Matching is case-insensitive.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NONE":
		return ModeNone, nil
	case "LEADER":
		return ModeLeader, nil
	case "FOLLOWER":
		return ModeFollower, nil
	case "CATCHUP":
		return ModeCatchup, nil
	}
	return ModeNone, fmt.Errorf("unknown mode %q", s)
}

// MarshalText allows modes to be used as map keys in JSON and YAML.
func (m Mode) MarshalText() ([]byte, error) {
	if m < ModeNone || m > ModeCatchup {
		return nil, fmt.Errorf("invalid mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
