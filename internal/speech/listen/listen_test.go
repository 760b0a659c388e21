package listen

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"agrivoice/internal/logging"
	"agrivoice/internal/speech"
)

func waitSession(t *testing.T, a *Adapter) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
}

type resultLog struct {
	mu   sync.Mutex
	seen []string
}

func (r *resultLog) add(text string) {
	r.mu.Lock()
	r.seen = append(r.seen, text)
	r.mu.Unlock()
}

func (r *resultLog) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func TestFirstResultClosesSession(t *testing.T) {
	rec := &StubRecognizer{Events: []Event{
		{Kind: EventResult, Text: " how to grow rice "},
		{Kind: EventResult, Text: "second"},
		{Kind: EventEnd},
	}}
	a := New(rec, "en", logging.NewTestLogger())
	var got resultLog
	a.OnResult(got.add)

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitSession(t, a)

	if seen := got.all(); len(seen) != 1 || seen[0] != "how to grow rice" {
		t.Fatalf("results = %v", seen)
	}
	if a.Listening() {
		t.Fatalf("expected session closed after result")
	}
	if a.LastTranscript() != "how to grow rice" {
		t.Fatalf("last transcript = %q", a.LastTranscript())
	}
}

func TestRecognizerErrorEndsSilently(t *testing.T) {
	rec := &StubRecognizer{Events: []Event{{Kind: EventError, Err: errors.New("no-speech")}}}
	a := New(rec, "en", logging.NewTestLogger())
	var got resultLog
	a.OnResult(got.add)

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitSession(t, a)
	if a.Listening() || a.LastTranscript() != "" || len(got.all()) != 0 {
		t.Fatalf("unexpected state after error: %+v", a.Session())
	}
}

func TestEmptyResultIgnored(t *testing.T) {
	rec := &StubRecognizer{Events: []Event{{Kind: EventResult, Text: "   "}, {Kind: EventEnd}}}
	a := New(rec, "en", logging.NewTestLogger())
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitSession(t, a)
	if a.LastTranscript() != "" {
		t.Fatalf("expected empty transcript, got %q", a.LastTranscript())
	}
}

func TestStopEndsSession(t *testing.T) {
	rec := &StubRecognizer{Hold: true}
	a := New(rec, "en", logging.NewTestLogger())
	var changes int
	var mu sync.Mutex
	a.OnChange(func(Session) {
		mu.Lock()
		changes++
		mu.Unlock()
	})
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !a.Listening() {
		t.Fatalf("expected listening")
	}
	a.Stop()
	if a.Listening() {
		t.Fatalf("expected stop to end the session")
	}
	waitSession(t, a)
	mu.Lock()
	defer mu.Unlock()
	if changes != 2 {
		t.Fatalf("expected start and stop notifications, got %d", changes)
	}
}

func TestStopWhenIdleIsNoop(t *testing.T) {
	a := New(&StubRecognizer{}, "en", logging.NewTestLogger())
	a.Stop()
	if a.Listening() {
		t.Fatalf("idle adapter should not be listening")
	}
	waitSession(t, a)
}

func TestStartWhileListening(t *testing.T) {
	a := New(&StubRecognizer{Hold: true}, "en", logging.NewTestLogger())
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer a.Stop()
	if err := a.Start(context.Background()); !errors.Is(err, ErrAlreadyListening) {
		t.Fatalf("expected ErrAlreadyListening, got %v", err)
	}
}

func TestLocaleResolvedOnEachStart(t *testing.T) {
	rec := &StubRecognizer{Events: []Event{{Kind: EventEnd}}}
	a := New(rec, "hi", logging.NewTestLogger())
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitSession(t, a)
	a.SetLanguage("fr")
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("second start: %v", err)
	}
	waitSession(t, a)

	got := rec.Locales()
	if len(got) != 2 || got[0] != "hi-IN" || got[1] != "en-IN" {
		t.Fatalf("locales = %v", got)
	}
}

func TestStartClearsPreviousTranscript(t *testing.T) {
	rec := &StubRecognizer{Events: []Event{{Kind: EventResult, Text: "wheat"}}}
	a := New(rec, "en", logging.NewTestLogger())
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitSession(t, a)
	if a.LastTranscript() != "wheat" {
		t.Fatalf("last transcript = %q", a.LastTranscript())
	}

	rec.Events = nil
	rec.Hold = true
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("second start: %v", err)
	}
	defer a.Stop()
	if a.LastTranscript() != "" {
		t.Fatalf("expected transcript cleared on start, got %q", a.LastTranscript())
	}
}

func TestUnsupportedRecognizer(t *testing.T) {
	a := New(&StubRecognizer{Unsupported: true}, "en", logging.NewTestLogger())
	if a.Supported() {
		t.Fatalf("expected unsupported")
	}
	err := a.Start(context.Background())
	if !speech.IsUnsupported(err) {
		t.Fatalf("expected UnsupportedError, got %v", err)
	}
	if a.Listening() {
		t.Fatalf("unsupported start must not listen")
	}
}

func TestRecognizeFailure(t *testing.T) {
	a := New(&StubRecognizer{Err: errors.New("device busy")}, "en", logging.NewTestLogger())
	if err := a.Start(context.Background()); err == nil {
		t.Fatalf("expected start error")
	}
	if a.Listening() {
		t.Fatalf("failed start must not listen")
	}
	waitSession(t, a)
}
