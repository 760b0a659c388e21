// Package speak plays text through a text-to-speech capability and tracks
// the single active utterance.
package speak

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"agrivoice/internal/speech"

	"github.com/sirupsen/logrus"
)

// ErrEmptyText is returned by Speak when there is nothing to say.
var ErrEmptyText = errors.New("nothing to speak")

// State is the playback state of the adapter.
type State int

const (
	Idle State = iota
	Speaking
	Paused
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Speaking:
		return "speaking"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Utterance is one playback in progress. Done yields the terminal error
// (nil on natural completion) and is then closed.
type Utterance interface {
	Pause() error
	Resume() error
	Cancel() error
	Done() <-chan error
}

// Synthesizer is a platform text-to-speech capability.
type Synthesizer interface {
	Supported() bool
	Utter(ctx context.Context, text, locale string) (Utterance, error)
}

// Adapter serializes playback: a new Speak cancels whatever is playing.
type Adapter struct {
	synth  Synthesizer
	logger *logrus.Logger

	mu       sync.Mutex
	lang     string
	state    State
	gen      uint64
	current  Utterance
	idle     chan struct{}
	onChange func(State)
}

// New returns an adapter for synth using the application language lang.
func New(synth Synthesizer, lang string, logger *logrus.Logger) *Adapter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	idle := make(chan struct{})
	close(idle)
	return &Adapter{synth: synth, lang: lang, logger: logger, idle: idle}
}

func (a *Adapter) Supported() bool {
	return a.synth != nil && a.synth.Supported()
}

// SetLanguage changes the voice locale used from the next Speak on.
func (a *Adapter) SetLanguage(lang string) {
	a.mu.Lock()
	a.lang = lang
	a.mu.Unlock()
}

// OnStateChange registers a callback invoked after every transition.
func (a *Adapter) OnStateChange(fn func(State)) {
	a.mu.Lock()
	a.onChange = fn
	a.mu.Unlock()
}

func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Speak cancels any active utterance and starts playing text.
func (a *Adapter) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}
	if !a.Supported() {
		return &speech.UnsupportedError{Capability: "speech output"}
	}

	a.mu.Lock()
	a.gen++
	gen := a.gen
	prev := a.current
	a.current = nil
	locale := speech.LocaleFor(a.lang)
	a.setStateLocked(Speaking)
	a.mu.Unlock()
	if prev != nil {
		if err := prev.Cancel(); err != nil {
			a.logger.Debugf("cancel previous utterance: %v", err)
		}
	}
	a.notify()

	utt, err := a.synth.Utter(ctx, text, locale)
	if err != nil {
		a.mu.Lock()
		if gen == a.gen {
			a.setStateLocked(Idle)
		}
		a.mu.Unlock()
		a.notify()
		return fmt.Errorf("speak: %w", err)
	}

	a.mu.Lock()
	if gen != a.gen {
		// Superseded by a newer Speak or a Cancel while starting.
		a.mu.Unlock()
		_ = utt.Cancel()
		return nil
	}
	a.current = utt
	a.mu.Unlock()
	a.logger.Debugf("speaking %d chars (%s)", len(text), locale)
	go a.watch(gen, utt)
	return nil
}

// Pause suspends playback. It is a no-op unless speaking.
func (a *Adapter) Pause() error {
	a.mu.Lock()
	if a.state != Speaking || a.current == nil {
		a.mu.Unlock()
		return nil
	}
	if err := a.current.Pause(); err != nil {
		a.mu.Unlock()
		return fmt.Errorf("pause: %w", err)
	}
	a.setStateLocked(Paused)
	a.mu.Unlock()
	a.notify()
	return nil
}

// Resume continues paused playback. It is a no-op unless paused.
func (a *Adapter) Resume() error {
	a.mu.Lock()
	if a.state != Paused || a.current == nil {
		a.mu.Unlock()
		return nil
	}
	if err := a.current.Resume(); err != nil {
		a.mu.Unlock()
		return fmt.Errorf("resume: %w", err)
	}
	a.setStateLocked(Speaking)
	a.mu.Unlock()
	a.notify()
	return nil
}

// Cancel stops playback and returns to Idle. It is a no-op when idle.
func (a *Adapter) Cancel() error {
	a.mu.Lock()
	if a.state == Idle {
		a.mu.Unlock()
		return nil
	}
	a.gen++
	utt := a.current
	a.current = nil
	a.setStateLocked(Idle)
	a.mu.Unlock()
	a.notify()
	if utt != nil {
		if err := utt.Cancel(); err != nil {
			return fmt.Errorf("cancel: %w", err)
		}
	}
	return nil
}

// Wait blocks until the adapter is idle.
func (a *Adapter) Wait(ctx context.Context) error {
	a.mu.Lock()
	idle := a.idle
	a.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Adapter) watch(gen uint64, utt Utterance) {
	err := <-utt.Done()
	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		return
	}
	a.current = nil
	a.setStateLocked(Idle)
	a.mu.Unlock()
	if err != nil {
		a.logger.Debugf("utterance ended: %v", err)
	}
	a.notify()
}

// setStateLocked keeps the idle channel closed exactly while state is Idle.
func (a *Adapter) setStateLocked(s State) {
	wasIdle := a.state == Idle
	a.state = s
	switch {
	case wasIdle && s != Idle:
		a.idle = make(chan struct{})
	case !wasIdle && s == Idle:
		close(a.idle)
	}
}

func (a *Adapter) notify() {
	a.mu.Lock()
	fn := a.onChange
	s := a.state
	a.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}
