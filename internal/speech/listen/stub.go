package listen

import (
	"context"
	"sync"
)

// StubRecognizer replays scripted events. It is used by tests and by the
// "none" backend.
type StubRecognizer struct {
	Unsupported bool
	Events      []Event
	// Hold keeps the session open after the scripted events until the
	// session context is cancelled.
	Hold bool
	Err  error

	mu      sync.Mutex
	locales []string
}

var _ Recognizer = (*StubRecognizer)(nil)

func (s *StubRecognizer) Supported() bool { return !s.Unsupported }

func (s *StubRecognizer) Recognize(ctx context.Context, locale string) (<-chan Event, error) {
	s.mu.Lock()
	s.locales = append(s.locales, locale)
	s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make(chan Event)
	go func() {
		defer close(out)
		for _, ev := range s.Events {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
		if s.Hold {
			<-ctx.Done()
		}
	}()
	return out, nil
}

// Locales returns the locale passed to each Recognize call.
func (s *StubRecognizer) Locales() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.locales...)
}
