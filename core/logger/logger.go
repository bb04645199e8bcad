package logger

// Logger is the logging facade used by the control loop and its collaborators.
type Logger interface {
	Debugf(format string, args ...any)
	// Debugw logs a message with structured fields, e.g. the ids involved in
	// a platoon decision.
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
