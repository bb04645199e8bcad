// Package events defines the platoon related events emitted on the event bus.
//
// Available event types:
//   - VehicleRegistered / VehicleRemoved: membership changes
//   - PlatoonSplit / PlatoonMerged: structural changes
//   - ModeChanged: a mode command was acknowledged by the simulator
//   - OperationRejected: a join, split or mode change was refused
//   - StepCompleted: summary of one control step
package events
