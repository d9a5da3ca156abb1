// Package logging builds the *zap.SugaredLogger the engine logs through
// (the evaluator and host bridge take no logger). Modeled on conduit's
// internal/lsp.Server.Run, which builds a zap.NewDevelopment() logger and
// falls back to zap.NewNop() rather than failing the caller outright.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger at the given level ("debug", "info", "warn",
// "error"; anything else defaults to "info"). Diagnostics produced by
// parsing/evaluating a script are user-facing result data, not
// operational events, so they are never routed through this logger —
// only the engine's execution lifecycle events (start, refusal on a parse
// error, finish) are.
func New(level string) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = "ts"

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}

func parseLevel(level string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel
	}
	return l
}
