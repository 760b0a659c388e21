package speak

import (
	"context"
	"sync"
)

// StubSynthesizer records utterances instead of playing them. Utterances
// stay open until Finish or Cancel unless AutoFinish is set.
type StubSynthesizer struct {
	Unsupported bool
	AutoFinish  bool
	Err         error

	mu         sync.Mutex
	utterances []*StubUtterance
}

var _ Synthesizer = (*StubSynthesizer)(nil)

func (s *StubSynthesizer) Supported() bool { return !s.Unsupported }

func (s *StubSynthesizer) Utter(_ context.Context, text, locale string) (Utterance, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	u := &StubUtterance{Text: text, Locale: locale, done: make(chan error, 1)}
	s.mu.Lock()
	s.utterances = append(s.utterances, u)
	s.mu.Unlock()
	if s.AutoFinish {
		u.Finish(nil)
	}
	return u, nil
}

// Utterances returns every utterance started so far, oldest first.
func (s *StubSynthesizer) Utterances() []*StubUtterance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*StubUtterance(nil), s.utterances...)
}

// StubUtterance is a scripted playback.
type StubUtterance struct {
	Text   string
	Locale string

	mu        sync.Mutex
	paused    bool
	cancelled bool
	done      chan error
	once      sync.Once
}

func (u *StubUtterance) Pause() error {
	u.mu.Lock()
	u.paused = true
	u.mu.Unlock()
	return nil
}

func (u *StubUtterance) Resume() error {
	u.mu.Lock()
	u.paused = false
	u.mu.Unlock()
	return nil
}

func (u *StubUtterance) Cancel() error {
	u.mu.Lock()
	u.cancelled = true
	u.mu.Unlock()
	u.Finish(context.Canceled)
	return nil
}

func (u *StubUtterance) Done() <-chan error { return u.done }

// Finish ends playback with err. Only the first call has an effect.
func (u *StubUtterance) Finish(err error) {
	u.once.Do(func() {
		u.done <- err
		close(u.done)
	})
}

func (u *StubUtterance) Paused() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.paused
}

func (u *StubUtterance) Cancelled() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.cancelled
}
