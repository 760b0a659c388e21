package run

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

type metrics struct {
	questions     atomic.Int64
	answers       atomic.Int64
	failures      atomic.Int64
	rejected      atomic.Int64
	voiceSessions atomic.Int64
	utterances    atomic.Int64
	started       time.Time
}

func (m *metrics) reset() {
	m.questions.Store(0)
	m.answers.Store(0)
	m.failures.Store(0)
	m.rejected.Store(0)
	m.voiceSessions.Store(0)
	m.utterances.Store(0)
	m.started = time.Now()
}

func (m *metrics) incQuestions()     { m.questions.Add(1) }
func (m *metrics) incAnswers()       { m.answers.Add(1) }
func (m *metrics) incFailures()      { m.failures.Add(1) }
func (m *metrics) incRejected()      { m.rejected.Add(1) }
func (m *metrics) incVoiceSessions() { m.voiceSessions.Add(1) }
func (m *metrics) incUtterances()    { m.utterances.Add(1) }

func (m *metrics) write(w io.Writer) {
	fmt.Fprintf(w, "session      %s\n", time.Since(m.started).Round(time.Second))
	fmt.Fprintf(w, "questions    %d\n", m.questions.Load())
	fmt.Fprintf(w, "answers      %d\n", m.answers.Load())
	fmt.Fprintf(w, "failures     %d\n", m.failures.Load())
	fmt.Fprintf(w, "rejected     %d\n", m.rejected.Load())
	fmt.Fprintf(w, "voice        %d\n", m.voiceSessions.Load())
	fmt.Fprintf(w, "utterances   %d\n", m.utterances.Load())
}
