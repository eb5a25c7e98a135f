// Package logging adapts go.uber.org/zap to orchestrator.Logger, grounded
// on the package-level zap wrapper in internal/log/log.go in the retrieval
// pack (teradata-labs-loom), narrowed from a global singleton to an
// injectable per-process value since the core never reaches for package
// globals.
package logging

import (
	"go.uber.org/zap"
)

// ZapLogger adapts a *zap.SugaredLogger to orchestrator.Logger's
// variadic key/value signature.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// New builds a ZapLogger from a *zap.Logger.
func New(l *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: l.Sugar()}
}

func (z *ZapLogger) Debug(msg string, args ...interface{}) { z.sugar.Debugw(msg, args...) }
func (z *ZapLogger) Info(msg string, args ...interface{})  { z.sugar.Infow(msg, args...) }
func (z *ZapLogger) Warn(msg string, args ...interface{})  { z.sugar.Warnw(msg, args...) }
func (z *ZapLogger) Error(msg string, args ...interface{}) { z.sugar.Errorw(msg, args...) }

// Sync flushes any buffered log entries.
func (z *ZapLogger) Sync() error { return z.sugar.Sync() }
