// Package assistant owns the conversation: it turns typed or spoken input
// into questions, records answers in an append-only transcript and plays
// answers back on request.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"agrivoice/internal/qa"
	"agrivoice/internal/speech/listen"
	"agrivoice/internal/speech/speak"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrEmptyInput          = errors.New("empty question")
	ErrBusy                = errors.New("still waiting for the previous answer")
	ErrUnknownMessage      = errors.New("no such message")
	ErrNotAssistantMessage = errors.New("only assistant messages can be played")
)

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one transcript entry. It is never changed after append.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	CreatedAt time.Time `json:"created_at"`
}

// State is a copy of everything the presentation layer renders.
type State struct {
	Messages       []Message
	Pending        bool
	LastError      string
	Language       string
	Listening      bool
	LastTranscript string
	Speech         speak.State
	VoiceInput     bool
	VoiceOutput    bool
}

// Exchange reports the outcome of one question.
type Exchange struct {
	Question string
	Answer   string
	Err      error
	Voice    bool
	Elapsed  time.Duration
}

// Assistant is safe for concurrent use. At most one question is in flight.
type Assistant struct {
	asker    qa.Asker
	listener *listen.Adapter
	speaker  *speak.Adapter
	logger   *logrus.Logger
	now      func() time.Time
	newID    func() string

	mu         sync.Mutex
	lang       string
	transcript []Message
	pending    bool
	lastError  string
	voiceCtx   context.Context
	onChange   func(State)
	onExchange func(Exchange)
}

// New wires the adapters to a fresh, empty conversation.
func New(asker qa.Asker, listener *listen.Adapter, speaker *speak.Adapter, lang string, logger *logrus.Logger) *Assistant {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	a := &Assistant{
		asker:    asker,
		listener: listener,
		speaker:  speaker,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
		lang:     lang,
	}
	listener.SetLanguage(lang)
	speaker.SetLanguage(lang)
	listener.OnResult(a.handleTranscript)
	listener.OnChange(func(listen.Session) { a.notify() })
	speaker.OnStateChange(func(speak.State) { a.notify() })
	return a
}

// OnChange registers a callback invoked with a fresh snapshot after every
// state change, including adapter transitions.
func (a *Assistant) OnChange(fn func(State)) {
	a.mu.Lock()
	a.onChange = fn
	a.mu.Unlock()
}

// OnExchange registers a callback invoked after every answered or failed
// question.
func (a *Assistant) OnExchange(fn func(Exchange)) {
	a.mu.Lock()
	a.onExchange = fn
	a.mu.Unlock()
}

// SubmitText asks question. Only ErrEmptyInput and ErrBusy are returned;
// answer failures are recorded in State.LastError.
func (a *Assistant) SubmitText(ctx context.Context, text string) error {
	return a.submit(ctx, text, false)
}

func (a *Assistant) submit(ctx context.Context, text string, voice bool) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInput
	}
	a.mu.Lock()
	if a.pending {
		a.mu.Unlock()
		return ErrBusy
	}
	a.transcript = append(a.transcript, a.messageLocked(text, SenderUser))
	a.lastError = ""
	a.pending = true
	a.mu.Unlock()
	a.notify()

	start := a.now()
	answer, err := a.asker.Ask(ctx, text)
	elapsed := a.now().Sub(start)

	a.mu.Lock()
	if err != nil {
		a.lastError = Describe(err)
	} else {
		a.transcript = append(a.transcript, a.messageLocked(answer, SenderAssistant))
	}
	a.pending = false
	onExchange := a.onExchange
	a.mu.Unlock()

	if err != nil {
		a.logger.Warnf("question failed after %s: %v", elapsed.Round(time.Millisecond), err)
	} else {
		a.logger.Infof("answered in %s (%d chars)", elapsed.Round(time.Millisecond), len(answer))
	}
	a.notify()
	if onExchange != nil {
		onExchange(Exchange{Question: text, Answer: answer, Err: err, Voice: voice, Elapsed: elapsed})
	}
	return nil
}

// SubmitVoice starts a listening session. The recognized utterance is asked
// as a question; a session without a result changes nothing.
func (a *Assistant) SubmitVoice(ctx context.Context) error {
	a.mu.Lock()
	if a.pending {
		a.mu.Unlock()
		return ErrBusy
	}
	a.voiceCtx = ctx
	a.mu.Unlock()
	return a.listener.Start(ctx)
}

// StopListening ends the active listening session, if any.
func (a *Assistant) StopListening() {
	a.listener.Stop()
}

// WaitListening blocks until the current listening session, including the
// question it produced, has finished.
func (a *Assistant) WaitListening(ctx context.Context) error {
	return a.listener.Wait(ctx)
}

func (a *Assistant) handleTranscript(text string) {
	a.mu.Lock()
	ctx := a.voiceCtx
	a.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := a.submit(ctx, text, true); err != nil {
		a.logger.Infof("dropped voice question %q: %v", text, err)
	}
}

// Vocalize plays an assistant message.
func (a *Assistant) Vocalize(ctx context.Context, id string) error {
	a.mu.Lock()
	var (
		msg   Message
		found bool
	)
	for _, m := range a.transcript {
		if m.ID == id {
			msg, found = m, true
			break
		}
	}
	a.mu.Unlock()
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownMessage, id)
	}
	if msg.Sender != SenderAssistant {
		return ErrNotAssistantMessage
	}
	return a.speaker.Speak(ctx, msg.Text)
}

func (a *Assistant) PauseSpeech() error  { return a.speaker.Pause() }
func (a *Assistant) ResumeSpeech() error { return a.speaker.Resume() }
func (a *Assistant) CancelSpeech() error { return a.speaker.Cancel() }

// WaitSpeech blocks until playback is idle.
func (a *Assistant) WaitSpeech(ctx context.Context) error {
	return a.speaker.Wait(ctx)
}

// SetLanguage switches the application language. Listening picks it up on
// the next session; playback on the next utterance.
func (a *Assistant) SetLanguage(code string) {
	code = strings.ToLower(strings.TrimSpace(code))
	a.mu.Lock()
	a.lang = code
	a.mu.Unlock()
	a.listener.SetLanguage(code)
	a.speaker.SetLanguage(code)
	a.notify()
}

// Snapshot returns a copy of the current state.
func (a *Assistant) Snapshot() State {
	a.mu.Lock()
	s := State{
		Messages:  append([]Message(nil), a.transcript...),
		Pending:   a.pending,
		LastError: a.lastError,
		Language:  a.lang,
	}
	a.mu.Unlock()
	sess := a.listener.Session()
	s.Listening = sess.Listening
	s.LastTranscript = sess.LastTranscript
	s.Speech = a.speaker.State()
	s.VoiceInput = a.listener.Supported()
	s.VoiceOutput = a.speaker.Supported()
	return s
}

func (a *Assistant) messageLocked(text string, sender Sender) Message {
	return Message{ID: a.newID(), Text: text, Sender: sender, CreatedAt: a.now()}
}

func (a *Assistant) notify() {
	a.mu.Lock()
	fn := a.onChange
	a.mu.Unlock()
	if fn != nil {
		fn(a.Snapshot())
	}
}

// Describe turns an answer failure into the message shown to the user.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	kind, status := qa.Classify(err)
	switch kind {
	case qa.KindConfiguration:
		return "The assistant is not configured (missing API key)."
	case qa.KindUpstream:
		if status == 0 {
			return "Could not reach the assistant. Check your connection and try again."
		}
		return fmt.Sprintf("Error %d: Failed to fetch AI response", status)
	case qa.KindMalformed:
		return "The assistant returned an unexpected response."
	default:
		return "Something went wrong. Please try again."
	}
}
