// Package logging builds the zap logger shared by the server, the bridges and the voice agent.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config defines logger configuration.
type Config struct {
	Level       string // "debug", "info", "warn", "error"
	Development bool
	// OutputPaths are zap sink URLs or file paths. In stdio mode this must not include
	// stdout, which carries the MCP protocol.
	OutputPaths []string
}

// New creates a logger with the provided configuration.
func New(cfg Config) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapCfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Development,
		Encoding:          encodingFormat(cfg.Development),
		EncoderConfig:     encoderConfig(cfg.Development),
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: !cfg.Development,
	}

	return zapCfg.Build()
}

// ForMode returns the logger config for a server run. stdio mode logs to logFile only
// (or nowhere if unset); HTTP mode logs to stderr as well.
func ForMode(level, logFile string, development, stdio bool) Config {
	cfg := Config{Level: level, Development: development}
	switch {
	case stdio && logFile == "":
		cfg.OutputPaths = []string{}
	case stdio:
		cfg.OutputPaths = []string{logFile}
	case logFile != "":
		cfg.OutputPaths = []string{"stderr", logFile}
	default:
		cfg.OutputPaths = []string{"stderr"}
	}
	return cfg
}

// NewForMode is New(ForMode(...)) with a nop fallback so a bad log path never
// stops the server; stdio mode with no log file also yields a nop logger.
func NewForMode(level, logFile string, development, stdio bool) *zap.Logger {
	cfg := ForMode(level, logFile, development, stdio)
	if cfg.OutputPaths != nil && len(cfg.OutputPaths) == 0 {
		return zap.NewNop()
	}
	logger, err := New(cfg)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func parseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}

func encodingFormat(development bool) string {
	if development {
		return "console"
	}
	return "json"
}

func encoderConfig(development bool) zapcore.EncoderConfig {
	if development {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}
