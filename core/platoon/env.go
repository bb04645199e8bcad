package platoon

import (
	"time"

	"github.com/kilianp07/platoon/core/logger"
	"github.com/kilianp07/platoon/core/simctl"
	"github.com/kilianp07/platoon/internal/eventbus"
)

// env is shared by a manager and every vehicle and platoon it owns.
type env struct {
	client         simctl.Client
	safety         SafetyChecker
	log            logger.Logger
	bus            eventbus.EventBus
	splitCountdown time.Duration
	// now is the simulation time of the step being processed.
	now    time.Duration
	lastID int
}

func (e *env) nextPlatoonID() int {
	e.lastID++
	return e.lastID
}

func (e *env) publish(ev eventbus.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}
