package platoon

import (
	"fmt"

	"github.com/kilianp07/platoon/core/model"
)

// ModeParams are the driving parameters a vehicle uses in one mode.
type ModeParams struct {
	// Decel is the braking deceleration the vehicle relies on, in m/s².
	Decel float64 `json:"decel"`
	// Tau is the desired time headway in seconds.
	Tau float64 `json:"tau"`
}

// DefaultModeParams apply to every mode a type does not configure.
var DefaultModeParams = map[model.Mode]ModeParams{
	model.ModeNone:     {Decel: 4.5, Tau: 1.0},
	model.ModeLeader:   {Decel: 4.5, Tau: 1.0},
	model.ModeFollower: {Decel: 4.5, Tau: 0.3},
	model.ModeCatchup:  {Decel: 4.5, Tau: 1.0},
}

// TypeParams maps modes to the parameters of one vehicle type.
type TypeParams map[model.Mode]ModeParams

// For returns the parameters of mode, falling back to DefaultModeParams.
func (p TypeParams) For(m model.Mode) ModeParams {
	if mp, ok := p[m]; ok {
		return mp
	}
	return DefaultModeParams[m]
}

// TypeCatalog resolves vehicle type names to their mode parameters.
type TypeCatalog interface {
	Params(typeName string) (TypeParams, bool)
}

// DefaultCatalog knows every type and gives it DefaultModeParams.
type DefaultCatalog struct{}

func (DefaultCatalog) Params(string) (TypeParams, bool) { return TypeParams{}, true }

// StaticCatalog only knows the types it contains.
type StaticCatalog map[string]TypeParams

func (c StaticCatalog) Params(typeName string) (TypeParams, bool) {
	p, ok := c[typeName]
	return p, ok
}

// NewCatalog builds a catalog from the vehicle_types configuration. An empty
// configuration yields DefaultCatalog.
func NewCatalog(types map[string]map[string]ModeParams) (TypeCatalog, error) {
	if len(types) == 0 {
		return DefaultCatalog{}, nil
	}
	cat := make(StaticCatalog, len(types))
	for typ, modes := range types {
		tp := make(TypeParams, len(modes))
		for name, mp := range modes {
			m, err := model.ParseMode(name)
			if err != nil {
				return nil, fmt.Errorf("vehicle type %s: %w", typ, err)
			}
			tp[m] = mp
		}
		cat[typ] = tp
	}
	return cat, nil
}
