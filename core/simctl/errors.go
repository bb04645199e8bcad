package simctl

import "errors"

var (
	// ErrUnknownAgent is returned when the queried or commanded agent vanished
	// from the simulation.
	ErrUnknownAgent = errors.New("unknown agent")

	// ErrCommandRejected is returned when the simulator refuses a command
	// because it is infeasible.
	ErrCommandRejected = errors.New("command rejected")

	// ErrTimeout is returned when the simulator did not answer in time.
	ErrTimeout = errors.New("timeout waiting for simulator response")
)
