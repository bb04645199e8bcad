package platoon

import "errors"

var (
	// ErrUnrecognizedVehicleType is logged when a selected vehicle type has
	// no parameters in the type catalog. Such vehicles are never controlled.
	ErrUnrecognizedVehicleType = errors.New("unrecognized vehicle type")

	// ErrOrderViolation is logged when the real leader of a follower is a
	// member of the same platoon but not its recorded predecessor.
	ErrOrderViolation = errors.New("platoon order violated")

	// ErrUnsafeSwitch is reported when a mode switch was refused by the
	// safety check.
	ErrUnsafeSwitch = errors.New("unsafe mode switch")

	// ErrNilClient is returned by NewManager without a simulation client.
	ErrNilClient = errors.New("platoon: nil simulation client")
)
