package speak

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"agrivoice/internal/logging"
	"agrivoice/internal/speech"
)

func waitIdle(t *testing.T, a *Adapter) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Wait(ctx); err != nil {
		t.Fatalf("wait idle: %v (state %s)", err, a.State())
	}
}

func TestSpeakRejectsEmptyText(t *testing.T) {
	a := New(&StubSynthesizer{}, "en", logging.NewTestLogger())
	if err := a.Speak(context.Background(), "  "); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if a.State() != Idle {
		t.Fatalf("state = %s", a.State())
	}
}

func TestSpeakUnsupported(t *testing.T) {
	a := New(&StubSynthesizer{Unsupported: true}, "en", logging.NewTestLogger())
	if err := a.Speak(context.Background(), "hello"); !speech.IsUnsupported(err) {
		t.Fatalf("expected UnsupportedError, got %v", err)
	}
	if a.State() != Idle {
		t.Fatalf("state = %s", a.State())
	}
}

func TestSpeakCancelsPreviousUtterance(t *testing.T) {
	synth := &StubSynthesizer{}
	a := New(synth, "en", logging.NewTestLogger())
	if err := a.Speak(context.Background(), "first answer"); err != nil {
		t.Fatalf("speak: %v", err)
	}
	if err := a.Speak(context.Background(), "second answer"); err != nil {
		t.Fatalf("speak: %v", err)
	}
	utts := synth.Utterances()
	if len(utts) != 2 {
		t.Fatalf("expected 2 utterances, got %d", len(utts))
	}
	if !utts[0].Cancelled() {
		t.Fatalf("first utterance should be cancelled")
	}
	if utts[1].Cancelled() {
		t.Fatalf("second utterance should still play")
	}
	if a.State() != Speaking {
		t.Fatalf("state = %s", a.State())
	}
	utts[1].Finish(nil)
	waitIdle(t, a)
}

func TestPauseResumeTransitions(t *testing.T) {
	synth := &StubSynthesizer{}
	a := New(synth, "en", logging.NewTestLogger())

	var mu sync.Mutex
	var seen []State
	a.OnStateChange(func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	// No-ops while idle.
	if err := a.Pause(); err != nil || a.State() != Idle {
		t.Fatalf("pause while idle: %v %s", err, a.State())
	}
	if err := a.Resume(); err != nil || a.State() != Idle {
		t.Fatalf("resume while idle: %v %s", err, a.State())
	}

	if err := a.Speak(context.Background(), "sow after the first rain"); err != nil {
		t.Fatalf("speak: %v", err)
	}
	u := synth.Utterances()[0]
	if err := a.Resume(); err != nil || a.State() != Speaking {
		t.Fatalf("resume while speaking: %v %s", err, a.State())
	}
	if err := a.Pause(); err != nil || a.State() != Paused || !u.Paused() {
		t.Fatalf("pause: %v %s", err, a.State())
	}
	if err := a.Pause(); err != nil || a.State() != Paused {
		t.Fatalf("second pause: %v %s", err, a.State())
	}
	if err := a.Resume(); err != nil || a.State() != Speaking || u.Paused() {
		t.Fatalf("resume: %v %s", err, a.State())
	}
	if err := a.Cancel(); err != nil || a.State() != Idle || !u.Cancelled() {
		t.Fatalf("cancel: %v %s", err, a.State())
	}
	if err := a.Cancel(); err != nil || a.State() != Idle {
		t.Fatalf("second cancel: %v %s", err, a.State())
	}
	waitIdle(t, a)

	mu.Lock()
	defer mu.Unlock()
	want := []State{Speaking, Paused, Speaking, Idle}
	if len(seen) != len(want) {
		t.Fatalf("transitions = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", seen, want)
		}
	}
}

func TestCancelFromPaused(t *testing.T) {
	synth := &StubSynthesizer{}
	a := New(synth, "en", logging.NewTestLogger())
	if err := a.Speak(context.Background(), "irrigate twice a week"); err != nil {
		t.Fatalf("speak: %v", err)
	}
	_ = a.Pause()
	if err := a.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if a.State() != Idle || !synth.Utterances()[0].Cancelled() {
		t.Fatalf("expected cancelled idle adapter, state %s", a.State())
	}
}

func TestNaturalCompletionReturnsToIdle(t *testing.T) {
	a := New(&StubSynthesizer{AutoFinish: true}, "en", logging.NewTestLogger())
	if err := a.Speak(context.Background(), "done"); err != nil {
		t.Fatalf("speak: %v", err)
	}
	waitIdle(t, a)
}

func TestPlaybackErrorReturnsToIdle(t *testing.T) {
	synth := &StubSynthesizer{}
	a := New(synth, "en", logging.NewTestLogger())
	if err := a.Speak(context.Background(), "hello"); err != nil {
		t.Fatalf("speak: %v", err)
	}
	synth.Utterances()[0].Finish(errors.New("audio device lost"))
	waitIdle(t, a)
}

func TestUtterFailure(t *testing.T) {
	a := New(&StubSynthesizer{Err: errors.New("no voice")}, "en", logging.NewTestLogger())
	if err := a.Speak(context.Background(), "hello"); err == nil {
		t.Fatalf("expected error")
	}
	if a.State() != Idle {
		t.Fatalf("state = %s", a.State())
	}
}

func TestSpeakUsesLocaleTable(t *testing.T) {
	synth := &StubSynthesizer{AutoFinish: true}
	a := New(synth, "ta", logging.NewTestLogger())
	_ = a.Speak(context.Background(), "vanakkam")
	waitIdle(t, a)
	a.SetLanguage("xx")
	_ = a.Speak(context.Background(), "hello")
	waitIdle(t, a)

	utts := synth.Utterances()
	if utts[0].Locale != "ta-IN" || utts[1].Locale != "en-IN" {
		t.Fatalf("locales = %s, %s", utts[0].Locale, utts[1].Locale)
	}
}
