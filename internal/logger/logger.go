// Package logger wraps zap behind a small interface so modules do not depend
// on a concrete logging backend.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ILogger interface {
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
}

type logger struct {
	zap *zap.Logger
}

func (l logger) Info(msg string, fields ...Field)  { l.zap.Info(msg, fields...) }
func (l logger) Warn(msg string, fields ...Field)  { l.zap.Warn(msg, fields...) }
func (l logger) Error(msg string, fields ...Field) { l.zap.Error(msg, fields...) }
func (l logger) Debug(msg string, fields ...Field) { l.zap.Debug(msg, fields...) }

// New builds a logger with the service name attached to every entry.
func New(namespace, level string) ILogger {
	return logger{zap: newZapLogger(namespace, level)}
}

func newZapLogger(namespace, level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.InitialFields = map[string]interface{}{"namespace": namespace}

	var lvl zapcore.Level
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return l
}

// Nop returns a logger that discards everything; used in tests.
func Nop() ILogger {
	return logger{zap: zap.NewNop()}
}
