package log

// NopLogger discards every entry. It is the default when no logger is
// injected and the usual choice in unit tests.
type NopLogger struct{}

// Debug implements Logger.
func (l *NopLogger) Debug(args ...any) {}

// Debugf implements Logger.
func (l *NopLogger) Debugf(format string, args ...any) {}

// Info implements Logger.
func (l *NopLogger) Info(args ...any) {}

// Infof implements Logger.
func (l *NopLogger) Infof(format string, args ...any) {}

// Warn implements Logger.
func (l *NopLogger) Warn(args ...any) {}

// Warnf implements Logger.
func (l *NopLogger) Warnf(format string, args ...any) {}

// Error implements Logger.
func (l *NopLogger) Error(args ...any) {}

// Errorf implements Logger.
func (l *NopLogger) Errorf(format string, args ...any) {}

// WithFields implements Logger.
func (l *NopLogger) WithFields(keysAndValues ...any) Logger { return l }
