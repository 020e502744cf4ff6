// Package logging constructs the application's zap logger from environment
// settings (LOG_LEVEL, LOG_DEV).
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a configured *zap.Logger. LOG_DEV=1 selects the development
// console encoder; otherwise JSON to stdout with ISO8601 timestamps.
func New() (*zap.Logger, error) {
	dev := os.Getenv("LOG_DEV") == "1"
	lvl := levelFromString(os.Getenv("LOG_LEVEL"), dev)

	if dev {
		c := zap.NewDevelopmentConfig()
		c.Level = zap.NewAtomicLevelAt(lvl)
		return c.Build()
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(os.Stdout), lvl)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func levelFromString(l string, dev bool) zapcore.Level {
	switch l {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	}
	if dev {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}
