// Package logging builds zap loggers from preset names.
package logging

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewZapLogger returns a new [*zap.Logger] with the given preset and log level.
//
// The available presets are:
//
//   - "console" (default): Reasonable defaults for production console environments.
//   - "console-nocolor": Same as "console", but without color.
//   - "console-notime": Same as "console", but without timestamps.
//   - "systemd": Reasonable defaults for running as a systemd service. Same as "console", but without color and timestamps.
//   - "production": Zap's built-in production preset.
//   - "development": Zap's built-in development preset.
//
// If the preset is not recognized, it is treated as a path to a JSON configuration file.
//
// The log level does not apply to the "production", "development", or custom presets.
func NewZapLogger(preset string, level zapcore.Level) (*zap.Logger, error) {
	switch preset {
	case "console", "":
		return NewProductionConsoleZapLogger(level, true, true), nil
	case "console-nocolor":
		return NewProductionConsoleZapLogger(level, false, true), nil
	case "console-notime":
		return NewProductionConsoleZapLogger(level, true, false), nil
	case "systemd":
		return NewProductionConsoleZapLogger(level, false, false), nil
	case "production":
		return zap.NewProduction()
	case "development":
		return zap.NewDevelopment()
	default:
		return NewZapLoggerFromConfig(preset)
	}
}

// NewProductionConsoleZapLogger returns a console logger that writes to stderr.
func NewProductionConsoleZapLogger(level zapcore.Level, color, timestamp bool) *zap.Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if color {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if !timestamp {
		cfg.TimeKey = zapcore.OmitKey
	}
	cfg.EncodeDuration = zapcore.StringDurationEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	return zap.New(core)
}

// NewZapLoggerFromConfig builds a logger from the JSON [zap.Config] at path.
func NewZapLoggerFromConfig(path string) (*zap.Logger, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read zap config: %w", err)
	}

	var cfg zap.Config
	if err = json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse zap config: %w", err)
	}
	return cfg.Build()
}
