package config

// Logger provides structured logging for installer operations.
// *zap.SugaredLogger satisfies it through its Debugw/Infow/Warnw/Errorw
// methods when wrapped by the command; tests may plug in their own.
type Logger interface {
	// Debug logs debug-level messages with optional key-value pairs.
	Debug(msg string, keysAndValues ...interface{})

	// Info logs info-level messages with optional key-value pairs.
	Info(msg string, keysAndValues ...interface{})

	// Warn logs warning-level messages with optional key-value pairs.
	Warn(msg string, keysAndValues ...interface{})

	// Error logs error-level messages with optional key-value pairs.
	Error(msg string, keysAndValues ...interface{})
}

// noopLogger is a Logger implementation that does nothing.
type noopLogger struct{}

func (n *noopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (n *noopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (n *noopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (n *noopLogger) Error(msg string, keysAndValues ...interface{}) {}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger {
	return &noopLogger{}
}
