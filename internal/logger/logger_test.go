package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestInitCreatesLogFile(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "config")

	if err := Init(Config{ConfigDir: configDir}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if Logger == nil {
		t.Fatal("Logger is nil after initialization")
	}

	Warn("cache miss", "key", "schedule/2025-06-10")

	logFile := filepath.Join(configDir, "logs", "fleetboard.log")
	if _, err := os.Stat(logFile); err != nil {
		t.Errorf("log file %s was not created: %v", logFile, err)
	}
}

func TestInitLogDirOverride(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "custom")

	if err := Init(Config{LogDir: logDir, ConfigDir: "/unused"}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if _, err := os.Stat(logDir); err != nil {
		t.Errorf("log dir %s was not created: %v", logDir, err)
	}
}

func TestInitLevel(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    log.Level
		wantErr bool
	}{
		{name: "default is warn", cfg: Config{}, want: log.WarnLevel},
		{name: "explicit info", cfg: Config{Level: "info"}, want: log.InfoLevel},
		{name: "debug flag wins", cfg: Config{Level: "error", Debug: true}, want: log.DebugLevel},
		{name: "unknown level", cfg: Config{Level: "chatty"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.LogDir = t.TempDir()
			err := Init(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Init() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := Logger.GetLevel(); got != tt.want {
				t.Errorf("level = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogFunctionsWithoutInit(t *testing.T) {
	Logger = nil

	// These should not panic when Logger is nil
	Debug("debug")
	Info("info")
	Warn("warn")
	Error("error")
	Time("noop")(nil)
}

func TestTime(t *testing.T) {
	var buf bytes.Buffer
	Logger = log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	defer func() { Logger = nil }()

	Time("get_snapshot", "date", "2025-06-10")(nil)
	if !strings.Contains(buf.String(), "op=get_snapshot") {
		t.Errorf("Time() success log = %q, want op=get_snapshot", buf.String())
	}

	buf.Reset()
	err := errors.New("boom")
	Time("update_trip")(&err)
	out := buf.String()
	if !strings.Contains(out, "operation failed") || !strings.Contains(out, "boom") {
		t.Errorf("Time() failure log = %q, want failure with error", out)
	}
}
