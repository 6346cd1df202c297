package main

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds a console logger writing to w at the named level.
// Timestamps, callers and stack traces are left out; the output is read
// in npm install logs, not collected.
func newLogger(level string, w io.Writer) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	encCfg.CallerKey = ""
	encCfg.StacktraceKey = ""

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(w)),
		lvl,
	)
	return zap.New(core).Sugar(), nil
}

// zapLogger adapts a SugaredLogger to config.Logger.
type zapLogger struct {
	s *zap.SugaredLogger
}

func (l zapLogger) Debug(msg string, keysAndValues ...interface{}) { l.s.Debugw(msg, keysAndValues...) }
func (l zapLogger) Info(msg string, keysAndValues ...interface{})  { l.s.Infow(msg, keysAndValues...) }
func (l zapLogger) Warn(msg string, keysAndValues ...interface{})  { l.s.Warnw(msg, keysAndValues...) }
func (l zapLogger) Error(msg string, keysAndValues ...interface{}) { l.s.Errorw(msg, keysAndValues...) }
