package assistant

import (
	"context"

	"agrivoice/internal/config"
	"agrivoice/internal/qa"
	"agrivoice/internal/speech/listen"
	"agrivoice/internal/speech/speak"

	"github.com/sirupsen/logrus"
)

// FromConfig builds an Assistant with the backends named in cfg.
func FromConfig(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Assistant, error) {
	asker, err := qa.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	rec, err := listen.FromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	synth, err := speak.FromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	lang := cfg.Language.Code
	return New(asker, listen.New(rec, lang, logger), speak.New(synth, lang, logger), lang, logger), nil
}
