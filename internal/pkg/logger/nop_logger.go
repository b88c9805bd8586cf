package logger

import "go.uber.org/zap"

// NewNopLogger returns a logger that discards everything. Used in tests
// and as a safe default when no logger is injected.
func NewNopLogger() *ZapLogger {
	return &ZapLogger{logger: zap.NewNop()}
}
