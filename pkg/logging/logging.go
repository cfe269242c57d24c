// Package logging provides a zap-backed orchestrator.Logger, replacing
// orchestrator.NoOpLogger for real deployments. Structured key/value pairs
// via zap.SugaredLogger, adapted to the orchestrator.Logger interface's
// variadic args signature.
package logging

import (
	"go.uber.org/zap"

	"github.com/hashwave/voxbridge/pkg/orchestrator"
)

// ZapLogger adapts a *zap.SugaredLogger to orchestrator.Logger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// New builds a production zap logger (JSON encoding, info level) wrapped as
// an orchestrator.Logger. Callers should defer Sync().
func New() (*ZapLogger, error) {
	base, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{sugar: base.Sugar()}, nil
}

// NewDevelopment builds a human-readable console logger, for local runs of
// cmd/agent.
func NewDevelopment() (*ZapLogger, error) {
	base, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{sugar: base.Sugar()}, nil
}

func (l *ZapLogger) Debug(msg string, args ...interface{}) { l.sugar.Debugw(msg, args...) }
func (l *ZapLogger) Info(msg string, args ...interface{})  { l.sugar.Infow(msg, args...) }
func (l *ZapLogger) Warn(msg string, args ...interface{})  { l.sugar.Warnw(msg, args...) }
func (l *ZapLogger) Error(msg string, args ...interface{}) { l.sugar.Errorw(msg, args...) }

// Sync flushes any buffered log entries. Call before process exit.
func (l *ZapLogger) Sync() error { return l.sugar.Sync() }

var _ orchestrator.Logger = (*ZapLogger)(nil)
