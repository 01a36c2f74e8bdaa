package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapts a zap.SugaredLogger to the Logger interface.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// Compile-time assertion: *ZapLogger implements Logger.
var _ Logger = (*ZapLogger)(nil)

// NewZap builds a production JSON logger at the given level. Unknown level
// strings fall back to info.
func NewZap(level string) (*ZapLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}

	return &ZapLogger{sugar: logger.Sugar()}, nil
}

// FromZap wraps an existing zap logger, for callers that already configured
// their own cores.
func FromZap(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: logger.Sugar()}
}

func (l *ZapLogger) must() *zap.SugaredLogger {
	if l == nil || l.sugar == nil {
		return zap.NewNop().Sugar()
	}

	return l.sugar
}

// Debug implements Logger.
func (l *ZapLogger) Debug(args ...any) { l.must().Debug(args...) }

// Debugf implements Logger.
func (l *ZapLogger) Debugf(format string, args ...any) { l.must().Debugf(format, args...) }

// Info implements Logger.
func (l *ZapLogger) Info(args ...any) { l.must().Info(args...) }

// Infof implements Logger.
func (l *ZapLogger) Infof(format string, args ...any) { l.must().Infof(format, args...) }

// Warn implements Logger.
func (l *ZapLogger) Warn(args ...any) { l.must().Warn(args...) }

// Warnf implements Logger.
func (l *ZapLogger) Warnf(format string, args ...any) { l.must().Warnf(format, args...) }

// Error implements Logger.
func (l *ZapLogger) Error(args ...any) { l.must().Error(args...) }

// Errorf implements Logger.
func (l *ZapLogger) Errorf(format string, args ...any) { l.must().Errorf(format, args...) }

// WithFields implements Logger.
func (l *ZapLogger) WithFields(keysAndValues ...any) Logger {
	return &ZapLogger{sugar: l.must().With(keysAndValues...)}
}

// Sync flushes buffered entries. Call on shutdown.
func (l *ZapLogger) Sync() error {
	return l.must().Sync()
}
