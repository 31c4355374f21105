// Package logging builds the zap logger shared by every component.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Style selects the log encoding.
type Style string

const (
	StyleJSON    Style = "json"
	StyleConsole Style = "console"
)

// Config selects level and output style.
type Config struct {
	Level string
	Style Style
}

// New builds a logger. Unknown levels fall back to info; the console style
// uses the development encoder with colored levels.
func New(cfg Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if cfg.Level != "" {
		if l, err := zapcore.ParseLevel(strings.ToLower(cfg.Level)); err == nil {
			level.SetLevel(l)
		}
	}

	var zc zap.Config
	if cfg.Style == StyleConsole {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zc.Level = level

	return zc.Build()
}

// Must is New for callers that cannot proceed without a logger.
func Must(cfg Config) *zap.Logger {
	logger, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return logger
}
