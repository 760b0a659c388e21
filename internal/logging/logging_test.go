package logging

import (
	"os"
	"path/filepath"
	"testing"

	"agrivoice/internal/config"

	"github.com/sirupsen/logrus"
)

func TestConfigureWritesRotatedLog(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Default()
	cfg.Paths.StateDir = dir
	cfg.Paths.LogPath = filepath.Join(dir, "logs", "agrivoice.log")
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"

	logger, err := Configure(cfg)
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", logger.GetLevel())
	}
	if _, ok := logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("expected json formatter, got %T", logger.Formatter)
	}
	logger.Info("hello")
	data, err := os.ReadFile(cfg.Paths.LogPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected log output")
	}
}

func TestRotatorFollowsLoggingSection(t *testing.T) {
	cfg, _ := config.Default()
	cfg.Paths.LogPath = filepath.Join(t.TempDir(), "agrivoice.log")
	cfg.Logging.MaxSizeMB = 2
	cfg.Logging.MaxBackups = 7
	cfg.Logging.MaxAgeDays = 3
	cfg.Logging.Compress = false

	r := Rotator(cfg)
	if r.Filename != cfg.Paths.LogPath || r.MaxSize != 2 || r.MaxBackups != 7 || r.MaxAge != 3 || r.Compress {
		t.Fatalf("rotator ignores config: %+v", r)
	}

	cfg.Logging.MaxSizeMB = -1
	if got := Rotator(cfg).MaxSize; got != 0 {
		t.Fatalf("negative size should fall back to lumberjack default, got %d", got)
	}
}

func TestConfigureRejectsBadSettings(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Default()
	cfg.Paths.StateDir = dir
	cfg.Paths.LogPath = filepath.Join(dir, "agrivoice.log")

	cfg.Logging.Level = "verbose"
	if _, err := Configure(cfg); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	cfg.Logging.Level = "warn"
	cfg.Logging.Format = "xml"
	if _, err := Configure(cfg); err == nil {
		t.Fatalf("expected error for unknown format")
	}
	cfg.Logging.Format = ""
	logger, err := Configure(cfg)
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if logger.GetLevel() != logrus.WarnLevel {
		t.Fatalf("expected warn level, got %s", logger.GetLevel())
	}
}
