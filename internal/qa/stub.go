package qa

import (
	"context"
	"sync"
)

// StubAsker is a test double that returns canned answers. No backend
// selects it. Gate, when set, blocks each call until
// a value is received or ctx ends, which lets callers observe in-flight
// state.
type StubAsker struct {
	Answer string
	Err    error
	Gate   chan struct{}

	mu        sync.Mutex
	questions []string
}

var _ Asker = (*StubAsker)(nil)

func (s *StubAsker) Ask(ctx context.Context, question string) (string, error) {
	s.mu.Lock()
	s.questions = append(s.questions, question)
	s.mu.Unlock()
	if s.Gate != nil {
		select {
		case <-s.Gate:
		case <-ctx.Done():
			return "", &UpstreamError{Err: ctx.Err()}
		}
	}
	if s.Err != nil {
		return "", s.Err
	}
	return s.Answer, nil
}

// Questions returns every question received so far.
func (s *StubAsker) Questions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.questions...)
}
