package logging

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewZapLoggerPresets(t *testing.T) {
	for _, preset := range []string{"console", "console-nocolor", "console-notime", "systemd", "production", "development"} {
		t.Run(preset, func(t *testing.T) {
			logger, err := NewZapLogger(preset, zapcore.WarnLevel)
			if err != nil {
				t.Fatalf("NewZapLogger(%q) failed: %v", preset, err)
			}
			if logger == nil {
				t.Fatal("NewZapLogger returned a nil logger")
			}
		})
	}
}

func TestNewZapLoggerLevel(t *testing.T) {
	logger, err := NewZapLogger("systemd", zapcore.WarnLevel)
	if err != nil {
		t.Fatal(err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info level enabled on a warn level logger")
	}
	if !logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("error level disabled on a warn level logger")
	}
}

func TestNewZapLoggerFromConfig(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "zap.json")
	if err := os.WriteFile(good, []byte(`{
		"level": "debug",
		"encoding": "json",
		"outputPaths": ["stderr"],
		"errorOutputPaths": ["stderr"]
	}`), 0o644); err != nil {
		t.Fatal(err)
	}

	logger, err := NewZapLogger(good, zapcore.InfoLevel)
	if err != nil {
		t.Fatalf("NewZapLogger(config file) failed: %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("config file level not applied")
	}

	bad := filepath.Join(dir, "bad.json")
	if err = os.WriteFile(bad, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err = NewZapLogger(bad, zapcore.InfoLevel); err == nil {
		t.Error("NewZapLogger with a malformed config succeeded")
	}

	if _, err = NewZapLogger(filepath.Join(dir, "missing.json"), zapcore.InfoLevel); err == nil {
		t.Error("NewZapLogger with a missing config succeeded")
	}
}
