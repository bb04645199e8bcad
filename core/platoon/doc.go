// Package platoon implements the platoon coordination control loop.
//
// A Manager owns the registry of controlled vehicles and the platoons they
// form. Step is called once per simulation step and runs, in order:
// registration of newly entered agents, removal of agents that left, a bulk
// telemetry refresh and, once per control interval, the follower split
// decision, the leader merge/catch-up decision and lane advisories.
//
// Every interaction with the motion simulator goes through simctl.Client.
// Recoverable failures (vanished agents, rejected commands, unsafe mode
// switches) are logged and re-evaluated in the next control cycle; Step never
// fails.
package platoon
