package speak

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"agrivoice/internal/command"

	"github.com/sirupsen/logrus"
)

// CommandSynthesizer speaks through an external program such as espeak-ng
// or say. ${text}, ${lang} and ${locale} are expanded in its arguments;
// without a ${text} placeholder the text is written to stdin.
type CommandSynthesizer struct {
	spec   command.Spec
	logger *logrus.Logger
}

var _ Synthesizer = (*CommandSynthesizer)(nil)

func NewCommandSynthesizer(spec command.Spec, logger *logrus.Logger) *CommandSynthesizer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CommandSynthesizer{spec: spec, logger: logger}
}

func (s *CommandSynthesizer) Supported() bool {
	_, err := command.Resolve(s.spec.Command)
	return err == nil
}

func (s *CommandSynthesizer) Utter(ctx context.Context, text, locale string) (Utterance, error) {
	lang, _, _ := strings.Cut(locale, "-")
	cmd, err := s.spec.Build(ctx, map[string]string{"text": text, "lang": lang, "locale": locale})
	if err != nil {
		return nil, err
	}
	if !s.spec.Uses("text") {
		cmd.Stdin = strings.NewReader(text)
	}
	u := &commandUtterance{cmd: cmd, done: make(chan error, 1)}
	cmd.Stderr = &u.stderr
	// Players that fork keep stderr open after a kill.
	cmd.WaitDelay = time.Second
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	s.logger.Debugf("tts pid %d: %s", cmd.Process.Pid, cmd.Path)
	go u.wait()
	return u, nil
}

type commandUtterance struct {
	cmd    *exec.Cmd
	stderr bytes.Buffer
	done   chan error

	mu        sync.Mutex
	paused    bool
	cancelled bool
}

func (u *commandUtterance) wait() {
	err := u.cmd.Wait()
	u.mu.Lock()
	cancelled := u.cancelled
	u.mu.Unlock()
	switch {
	case cancelled:
		err = nil
	case err != nil:
		if msg := strings.TrimSpace(u.stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
	}
	u.done <- err
	close(u.done)
}

func (u *commandUtterance) Pause() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.paused || u.cancelled {
		return nil
	}
	if err := stopProcess(u.cmd.Process); err != nil {
		return err
	}
	u.paused = true
	return nil
}

func (u *commandUtterance) Resume() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.paused || u.cancelled {
		return nil
	}
	if err := continueProcess(u.cmd.Process); err != nil {
		return err
	}
	u.paused = false
	return nil
}

func (u *commandUtterance) Cancel() error {
	u.mu.Lock()
	if u.cancelled {
		u.mu.Unlock()
		return nil
	}
	u.cancelled = true
	u.mu.Unlock()
	if err := u.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func (u *commandUtterance) Done() <-chan error { return u.done }
