// Package applog wraps zap so the rest of the module never imports
// go.uber.org/zap directly. The host process supplies the sink (stderr,
// a log file, a multi-writer) — where bytes ultimately land is treated as
// an external collaborator, same as any other logging backend.
package applog

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger threaded through every component.
type Logger struct {
	z *zap.Logger
}

// New builds a Logger writing to w. verbose selects debug-level output;
// otherwise info and above.
func New(w io.Writer, verbose bool) *Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		NameKey:        "logger",
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		LineEnding:     zapcore.DefaultLineEnding,
	})
	core := zapcore.NewCore(enc, zapcore.AddSync(w), level)
	return &Logger{z: zap.New(core)}
}

// Nop returns a Logger that discards everything, for tests and defaults.
func Nop() *Logger {
	return &Logger{z: zap.NewNop()}
}

func (l *Logger) Named(name string) *Logger {
	return &Logger{z: l.z.Named(name)}
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.z.Sugar().Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.z.Sugar().Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.z.Sugar().Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.z.Sugar().Errorf(format, args...) }

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.z.Sync()
}
