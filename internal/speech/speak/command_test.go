//go:build unix

package speak

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"agrivoice/internal/command"
	"agrivoice/internal/logging"
)

func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "tts.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func waitDone(t *testing.T, u Utterance) error {
	t.Helper()
	select {
	case err := <-u.Done():
		return err
	case <-time.After(5 * time.Second):
		t.Fatalf("utterance did not finish")
		return nil
	}
}

func TestCommandSynthesizerPlaceholders(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	script := writeScript(t, dir, `printf '%s|%s|%s' "$1" "$2" "$3" > "$OUT"`)
	s := NewCommandSynthesizer(command.Spec{
		Command: script,
		Args:    []string{"${lang}", "${locale}", "${text}"},
		Env:     map[string]string{"OUT": out},
	}, logging.NewTestLogger())
	if !s.Supported() {
		t.Fatalf("expected script to be supported")
	}
	u, err := s.Utter(context.Background(), "use neem oil", "hi-IN")
	if err != nil {
		t.Fatalf("utter: %v", err)
	}
	if err := waitDone(t, u); err != nil {
		t.Fatalf("done: %v", err)
	}
	data, _ := os.ReadFile(out)
	if string(data) != "hi|hi-IN|use neem oil" {
		t.Fatalf("script saw %q", data)
	}
}

func TestCommandSynthesizerStdin(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	script := writeScript(t, dir, `cat > "$OUT"`)
	s := NewCommandSynthesizer(command.Spec{Command: script, Env: map[string]string{"OUT": out}}, logging.NewTestLogger())
	u, err := s.Utter(context.Background(), "rotate crops", "en-IN")
	if err != nil {
		t.Fatalf("utter: %v", err)
	}
	if err := waitDone(t, u); err != nil {
		t.Fatalf("done: %v", err)
	}
	data, _ := os.ReadFile(out)
	if string(data) != "rotate crops" {
		t.Fatalf("stdin = %q", data)
	}
}

func TestCommandSynthesizerDashLeadingAnswer(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	// Rejects unknown options the way espeak-ng does.
	script := writeScript(t, dir, `for a; do
  case "$a" in
    -v|--stdin|hi) ;;
    -*) echo "unknown option $a" >&2; exit 1 ;;
  esac
done
cat > "$OUT"`)
	a := New(NewCommandSynthesizer(command.Spec{
		Command: script,
		Args:    []string{"-v", "${lang}", "--stdin"},
		Env:     map[string]string{"OUT": out},
	}, logging.NewTestLogger()), "hi", logging.NewTestLogger())

	answer := "- Apply fungicide X.\n-n Spray before noon."
	if err := a.Speak(context.Background(), answer); err != nil {
		t.Fatalf("speak: %v", err)
	}
	waitIdle(t, a)
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("synthesizer never read the answer: %v", err)
	}
	if string(data) != answer {
		t.Fatalf("stdin = %q", data)
	}
}

func TestCommandSynthesizerFailureIncludesStderr(t *testing.T) {
	script := writeScript(t, t.TempDir(), `echo "voice not found" >&2; exit 1`)
	s := NewCommandSynthesizer(command.Spec{Command: script}, logging.NewTestLogger())
	u, err := s.Utter(context.Background(), "hello", "en-IN")
	if err != nil {
		t.Fatalf("utter: %v", err)
	}
	err = waitDone(t, u)
	if err == nil || !strings.Contains(err.Error(), "voice not found") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestCommandSynthesizerPauseResumeCancel(t *testing.T) {
	script := writeScript(t, t.TempDir(), `exec sleep 30`)
	a := New(NewCommandSynthesizer(command.Spec{Command: script}, logging.NewTestLogger()), "en", logging.NewTestLogger())
	if err := a.Speak(context.Background(), "long answer"); err != nil {
		t.Fatalf("speak: %v", err)
	}
	if err := a.Pause(); err != nil || a.State() != Paused {
		t.Fatalf("pause: %v %s", err, a.State())
	}
	if err := a.Resume(); err != nil || a.State() != Speaking {
		t.Fatalf("resume: %v %s", err, a.State())
	}
	_ = a.Pause()
	if err := a.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	waitIdle(t, a)
}

func TestCommandSynthesizerUnsupported(t *testing.T) {
	s := NewCommandSynthesizer(command.Spec{Command: filepath.Join(t.TempDir(), "missing")}, nil)
	if s.Supported() {
		t.Fatalf("missing binary must be unsupported")
	}
}
