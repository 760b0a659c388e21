// Package logging builds the application logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"agrivoice/internal/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Configure returns a logger writing to cfg.Paths.LogPath, rotated per the
// [logging] section. An unknown level is an error so a typo in config does
// not silently drop debug output.
func Configure(cfg *config.Config) (*logrus.Logger, error) {
	if err := config.MustStatePaths(cfg); err != nil {
		return nil, err
	}
	level := logrus.InfoLevel
	if raw := strings.TrimSpace(cfg.Logging.Level); raw != "" {
		lvl, err := logrus.ParseLevel(strings.ToLower(raw))
		if err != nil {
			return nil, fmt.Errorf("logging.level: %w", err)
		}
		level = lvl
	}

	logger := logrus.New()
	logger.SetLevel(level)
	switch strings.ToLower(cfg.Logging.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	default:
		return nil, fmt.Errorf("logging.format: unknown format %q (want text or json)", cfg.Logging.Format)
	}

	var out io.Writer = Rotator(cfg)
	if cfg.Logging.Stdout {
		out = io.MultiWriter(os.Stdout, out)
	}
	logger.SetOutput(out)
	return logger, nil
}

// Rotator returns the lumberjack writer for the configured log file.
// Non-positive sizes fall back to lumberjack's own defaults.
func Rotator(cfg *config.Config) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.Paths.LogPath,
		MaxSize:    max(cfg.Logging.MaxSizeMB, 0),
		MaxBackups: max(cfg.Logging.MaxBackups, 0),
		MaxAge:     max(cfg.Logging.MaxAgeDays, 0),
		Compress:   cfg.Logging.Compress,
	}
}

// NewTestLogger returns a logger that discards everything.
func NewTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.DebugLevel)
	return logger
}
