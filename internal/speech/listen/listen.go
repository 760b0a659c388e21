// Package listen wraps a speech-to-text capability into a single-session
// start/stop state machine.
package listen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"agrivoice/internal/speech"

	"github.com/sirupsen/logrus"
)

// ErrAlreadyListening is returned by Start while a session is active.
var ErrAlreadyListening = errors.New("already listening")

// EventKind classifies a recognizer event.
type EventKind int

const (
	EventResult EventKind = iota
	EventError
	EventEnd
)

func (k EventKind) String() string {
	switch k {
	case EventResult:
		return "result"
	case EventError:
		return "error"
	case EventEnd:
		return "end"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is emitted by a Recognizer during one capture session.
type Event struct {
	Kind EventKind
	Text string
	Err  error
}

// Recognizer is a platform speech-to-text capability.
type Recognizer interface {
	Supported() bool
	// Recognize starts one capture session for locale. The channel is closed
	// when the session is over; cancelling ctx stops capture early.
	Recognize(ctx context.Context, locale string) (<-chan Event, error)
}

// Session is a snapshot of the adapter state.
type Session struct {
	Listening      bool
	LastTranscript string
	Language       string
}

// Adapter accepts at most one result per session; the first result closes it.
type Adapter struct {
	rec    Recognizer
	logger *logrus.Logger

	mu             sync.Mutex
	lang           string
	listening      bool
	lastTranscript string
	gen            uint64
	cancel         context.CancelFunc
	done           chan struct{}
	onResult       func(text string)
	onChange       func(Session)
}

// New returns an adapter for rec using the application language lang.
func New(rec Recognizer, lang string, logger *logrus.Logger) *Adapter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Adapter{rec: rec, lang: lang, logger: logger}
}

// Supported reports whether speech input is available.
func (a *Adapter) Supported() bool {
	return a.rec != nil && a.rec.Supported()
}

// SetLanguage changes the language used from the next Start on.
func (a *Adapter) SetLanguage(lang string) {
	a.mu.Lock()
	a.lang = lang
	a.mu.Unlock()
}

// OnResult registers the callback invoked with each accepted transcript.
func (a *Adapter) OnResult(fn func(text string)) {
	a.mu.Lock()
	a.onResult = fn
	a.mu.Unlock()
}

// OnChange registers a callback invoked after every state transition.
func (a *Adapter) OnChange(fn func(Session)) {
	a.mu.Lock()
	a.onChange = fn
	a.mu.Unlock()
}

// Start begins a capture session.
func (a *Adapter) Start(ctx context.Context) error {
	if !a.Supported() {
		return &speech.UnsupportedError{Capability: "speech input"}
	}
	a.mu.Lock()
	if a.listening {
		a.mu.Unlock()
		return ErrAlreadyListening
	}
	a.gen++
	gen := a.gen
	a.listening = true
	a.lastTranscript = ""
	locale := speech.LocaleFor(a.lang)
	sctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	done := make(chan struct{})
	a.done = done
	a.mu.Unlock()
	a.notify()

	events, err := a.rec.Recognize(sctx, locale)
	if err != nil {
		a.finish(gen)
		close(done)
		return fmt.Errorf("start recognizer: %w", err)
	}
	a.logger.Debugf("listening (%s)", locale)
	go a.consume(gen, events, done)
	return nil
}

// Stop ends the active session early. It is a no-op when idle.
func (a *Adapter) Stop() {
	a.mu.Lock()
	gen := a.gen
	a.mu.Unlock()
	a.finish(gen)
}

// Listening reports whether a session is active.
func (a *Adapter) Listening() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listening
}

// LastTranscript returns the result of the most recent session, if any.
func (a *Adapter) LastTranscript() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastTranscript
}

// Session returns a snapshot of the adapter state.
func (a *Adapter) Session() Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot()
}

// Wait blocks until the most recent session's event loop, including the
// result callback, has returned.
func (a *Adapter) Wait(ctx context.Context) error {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Adapter) consume(gen uint64, events <-chan Event, done chan struct{}) {
	defer close(done)
	defer a.finish(gen)
	for ev := range events {
		switch ev.Kind {
		case EventResult:
			text := strings.TrimSpace(ev.Text)
			if text == "" {
				continue
			}
			a.mu.Lock()
			if gen != a.gen || !a.listening {
				a.mu.Unlock()
				continue
			}
			a.lastTranscript = text
			a.listening = false
			if a.cancel != nil {
				a.cancel()
				a.cancel = nil
			}
			onResult := a.onResult
			a.mu.Unlock()
			a.notify()
			a.logger.Debugf("heard: %q", text)
			if onResult != nil {
				onResult(text)
			}
		case EventError:
			// Recognition failures are not surfaced to the user.
			a.logger.Debugf("recognizer error: %v", ev.Err)
			a.finish(gen)
		case EventEnd:
			a.finish(gen)
		}
	}
}

// finish closes session gen if it is still the active one.
func (a *Adapter) finish(gen uint64) {
	a.mu.Lock()
	if gen != a.gen || !a.listening {
		a.mu.Unlock()
		return
	}
	a.listening = false
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.mu.Unlock()
	a.notify()
}

func (a *Adapter) snapshot() Session {
	return Session{Listening: a.listening, LastTranscript: a.lastTranscript, Language: a.lang}
}

func (a *Adapter) notify() {
	a.mu.Lock()
	fn := a.onChange
	s := a.snapshot()
	a.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}
