package listen

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"agrivoice/internal/command"

	"github.com/sirupsen/logrus"
)

// CommandRecognizer delegates capture to an external program that prints
// the recognized utterance on stdout. ${locale} and ${lang} are expanded in
// its arguments.
type CommandRecognizer struct {
	spec    command.Spec
	timeout time.Duration
	logger  *logrus.Logger
}

var _ Recognizer = (*CommandRecognizer)(nil)

func NewCommandRecognizer(spec command.Spec, timeout time.Duration, logger *logrus.Logger) *CommandRecognizer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CommandRecognizer{spec: spec, timeout: timeout, logger: logger}
}

func (r *CommandRecognizer) Supported() bool {
	_, err := command.Resolve(r.spec.Command)
	return err == nil
}

func (r *CommandRecognizer) Recognize(ctx context.Context, locale string) (<-chan Event, error) {
	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if r.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
	}
	lang, _, _ := strings.Cut(locale, "-")
	cmd, err := r.spec.Build(runCtx, map[string]string{"locale": locale, "lang": lang})
	if err != nil {
		cancel()
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, err
	}

	// One result plus one terminal event at most.
	out := make(chan Event, 2)
	go func() {
		defer close(out)
		defer cancel()
		got := false
		sc := bufio.NewScanner(stdout)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || got {
				continue
			}
			got = true
			out <- Event{Kind: EventResult, Text: line}
		}
		err := cmd.Wait()
		switch {
		case ctx.Err() != nil:
			out <- Event{Kind: EventEnd}
		case err != nil && !got:
			out <- Event{Kind: EventError, Err: fmt.Errorf("recognizer: %w: %s", err, strings.TrimSpace(stderr.String()))}
		default:
			if err != nil {
				r.logger.Debugf("recognizer exited after result: %v", err)
			}
			out <- Event{Kind: EventEnd}
		}
	}()
	return out, nil
}
