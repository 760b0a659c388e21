// Package control holds the agrivoice subcommands.
package control

import (
	"agrivoice/internal/config"
	"agrivoice/internal/logging"

	"github.com/sirupsen/logrus"
)

// load reads the config and configures logging for one command run.
func load(cfgPath string) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	if err := config.MustStatePaths(cfg); err != nil {
		return nil, nil, err
	}
	logger, err := logging.Configure(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
