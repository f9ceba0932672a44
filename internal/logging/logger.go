// Package logging provides the leveled logger shared by every layer.
package logging

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the printf-style facade the rest of the code logs through
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// zapLogger adapts a zap.SugaredLogger to Logger
type zapLogger struct {
	sugar *zap.SugaredLogger
}

func (l *zapLogger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *zapLogger) Info(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *zapLogger) Warn(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *zapLogger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// New builds a console logger writing to output at the given minimum level.
func New(level string, output io.Writer) Logger {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.TimeKey = ""
	encoderCfg.CallerKey = ""
	encoderCfg.NameKey = "logger"
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(output), LevelFromString(level))

	return &zapLogger{sugar: zap.New(core).Named("buildhelper").Sugar()}
}

// FromZap wraps an existing zap logger, e.g. one built on zaptest/observer.
func FromZap(z *zap.Logger) Logger {
	return &zapLogger{sugar: z.Sugar()}
}

// LevelFromString converts a level name, defaulting to warn
func LevelFromString(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error", "fatal":
		return zapcore.ErrorLevel
	default:
		return zapcore.WarnLevel
	}
}

// LevelForFlags maps --verbose/--quiet onto a level name; with neither
// flag set the configured default is kept.
func LevelForFlags(verbose, quiet bool, def string) string {
	switch {
	case verbose:
		return "debug"
	case quiet:
		return "error"
	default:
		return def
	}
}

var globalLogger = New("warn", os.Stderr)

// SetLogger replaces the process logger. nil is ignored.
func SetLogger(logger Logger) {
	if logger != nil {
		globalLogger = logger
	}
}

// GetLogger returns the process logger.
func GetLogger() Logger {
	return globalLogger
}
