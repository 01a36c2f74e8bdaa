// Package log defines the logging contract consumed by the engine packages.
//
// Components receive a Logger at construction time and never log through a
// process-wide singleton. Production wiring uses the zap-backed logger from
// NewZap; tests and nil-safe defaults use NopLogger.
package log

// Logger is the narrow structured logging interface used across the module.
type Logger interface {
	Debug(args ...any)
	Debugf(format string, args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)

	// WithFields returns a child logger carrying additional key/value
	// pairs on every entry. Keys and values alternate.
	WithFields(keysAndValues ...any) Logger
}

// OrNop returns l, or a NopLogger when l is nil, so constructors can accept
// an optional logger without nil checks at every call site.
func OrNop(l Logger) Logger {
	if l == nil {
		return &NopLogger{}
	}

	return l
}
