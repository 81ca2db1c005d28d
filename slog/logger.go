// Package slog holds the logging interface shared by the bot engine and its components
// along with its standard library and zap implementations
package slog

import (
	"fmt"
	"go.uber.org/zap"
	"io"
	"log"
)

// Logger is the internal logging interface. The standard library logger wrapped by New
// and a zap sugared logger wrapped by NewZap both implement it
type Logger interface {
	Printf(format string, v ...interface{})

	Debugf(format string, v ...interface{})
}

type stdLogger struct {
	logger *log.Logger
	debug  bool
}

// New creates a new logger provided with a standard library logger and a debug flag
func New(l *log.Logger, debug bool) (sl Logger) {
	return &stdLogger{logger: l, debug: debug}
}

// Discard returns a logger that drops everything
func Discard() (sl Logger) {
	return New(log.New(io.Discard, "", 0), false)
}

// Debugf logs a debug line after checking if the logger is in debug mode
func (sl *stdLogger) Debugf(format string, v ...interface{}) {
	if sl.debug {
		sl.logger.Output(2, fmt.Sprintf(format, v...))
	}
}

// Printf logs a line by delegating the call to Output
func (sl *stdLogger) Printf(format string, v ...interface{}) {
	sl.logger.Output(2, fmt.Sprintf(format, v...))
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZap creates a new logger writing Printf lines at info level and Debugf lines at debug
// level of the given zap logger
func NewZap(sugar *zap.SugaredLogger) (sl Logger) {
	return &zapLogger{sugar: sugar}
}

// Printf logs at info level
func (zl *zapLogger) Printf(format string, v ...interface{}) {
	zl.sugar.Infof(format, v...)
}

// Debugf logs at debug level
func (zl *zapLogger) Debugf(format string, v ...interface{}) {
	zl.sugar.Debugf(format, v...)
}

// NewZapLogger builds a zap logger from a format ("console" or "json") and a level name
// ("debug", "info", "warn", "error"). debug forces the debug level
func NewZapLogger(format string, level string, debug bool) (logger *zap.Logger, err error) {
	cfg := zap.NewProductionConfig()
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	}

	if level != "" {
		if cfg.Level, err = zap.ParseAtomicLevel(level); err != nil {
			return nil, err
		}
	}

	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	return cfg.Build(zap.AddCallerSkip(1))
}
