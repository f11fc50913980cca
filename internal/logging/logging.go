// Package logging wraps go.uber.org/zap into the one SugaredLogger every
// core component logs through. User-facing prose goes through
// internal/ui.Output instead; this channel is operator-facing (operation
// id, step, op phase), consistent with a production CLI tool.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a SugaredLogger. verbose selects debug level; otherwise info
// and above. Output is always written to stderr so it never interleaves
// with a command's stdout (JSON or human) output.
func New(verbose bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// Noop returns a logger that discards everything, for tests and for any
// caller that hasn't wired a real sink.
func Noop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
