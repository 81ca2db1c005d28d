package tkscot

import (
	"github.com/teamkill/tkscot/slog"
	"go.uber.org/zap"
	"log"
)

// SLogger is the tkscot internal logging interface. The standard library logger can be adapted to it with NewSLogger
type SLogger = slog.Logger

// NewSLogger creates a new tkscot logger provided with a standard library logger and a debug flag
func NewSLogger(log *log.Logger, debug bool) (l SLogger) {
	return slog.New(log, debug)
}

// NewZapSLogger creates a new tkscot logger backed by a zap sugared logger. Debug lines are
// filtered by the zap level
func NewZapSLogger(sugar *zap.SugaredLogger) (l SLogger) {
	return slog.NewZap(sugar)
}
