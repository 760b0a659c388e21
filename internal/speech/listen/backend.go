package listen

import (
	"fmt"
	"strings"
	"time"

	"agrivoice/internal/command"
	"agrivoice/internal/config"

	"github.com/sirupsen/logrus"
)

// FromConfig returns the recognizer selected by speech_input.backend.
func FromConfig(cfg *config.Config, logger *logrus.Logger) (Recognizer, error) {
	in := cfg.SpeechInput
	switch strings.ToLower(strings.TrimSpace(in.Backend)) {
	case "command":
		spec := command.Spec{Command: in.Command, Args: in.Args, Env: in.Env}
		timeout := time.Duration(in.TimeoutSec * float64(time.Second))
		return NewCommandRecognizer(spec, timeout, logger), nil
	case "whisper":
		return NewWhisperRecognizer(WhisperOptions{
			ModelPath:      in.ModelPath,
			DeviceName:     in.DeviceName,
			SampleRate:     in.SampleRate,
			FrameMS:        in.FrameMS,
			SilenceMS:      in.SilenceMS,
			MaxSegmentMS:   in.MaxSegmentMS,
			Aggressiveness: in.Aggressiveness,
		}, logger)
	case "", "none":
		return &StubRecognizer{Unsupported: true}, nil
	default:
		return nil, fmt.Errorf("unknown speech_input.backend %q (want command, whisper or none)", in.Backend)
	}
}
