package speak

import (
	"fmt"
	"strings"

	"agrivoice/internal/command"
	"agrivoice/internal/config"

	"github.com/sirupsen/logrus"
)

// FromConfig returns the synthesizer selected by speech_output.backend.
func FromConfig(cfg *config.Config, logger *logrus.Logger) (Synthesizer, error) {
	out := cfg.SpeechOutput
	switch strings.ToLower(strings.TrimSpace(out.Backend)) {
	case "command":
		return NewCommandSynthesizer(command.Spec{Command: out.Command, Args: out.Args, Env: out.Env}, logger), nil
	case "", "none":
		return &StubSynthesizer{Unsupported: true}, nil
	default:
		return nil, fmt.Errorf("unknown speech_output.backend %q (want command or none)", out.Backend)
	}
}
