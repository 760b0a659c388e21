//go:build !whisper

package listen

import (
	"context"

	"github.com/sirupsen/logrus"
)

// WhisperRecognizer is unavailable without the whisper build tag.
type WhisperRecognizer struct{}

var _ Recognizer = (*WhisperRecognizer)(nil)

func NewWhisperRecognizer(_ WhisperOptions, _ *logrus.Logger) (*WhisperRecognizer, error) {
	return &WhisperRecognizer{}, nil
}

func (*WhisperRecognizer) Supported() bool { return false }

func (*WhisperRecognizer) Recognize(context.Context, string) (<-chan Event, error) {
	return nil, ErrWhisperDisabled
}

func ListMicrophones() ([]Microphone, error) {
	return nil, ErrWhisperDisabled
}

func TranscribeSamples(string, string, []float32) (string, error) {
	return "", ErrWhisperDisabled
}
