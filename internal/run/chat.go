// Package run hosts the interactive chat session.
package run

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"agrivoice/internal/assistant"
	"agrivoice/internal/config"
	"agrivoice/internal/speech"
	"agrivoice/internal/speech/listen"
	"agrivoice/internal/weather"

	"github.com/sirupsen/logrus"
)

const diseaseNotice = "Plant disease recognition is coming soon."

// Chat is a line-oriented front end for one Assistant. Plain lines are
// questions; lines starting with '/' are commands.
type Chat struct {
	asst    *assistant.Assistant
	weather *weather.Client
	logger  *logrus.Logger
	in      io.Reader
	out     io.Writer

	outMu   sync.Mutex
	metrics metrics
}

// NewChat wires asst's callbacks to out.
func NewChat(asst *assistant.Assistant, wc *weather.Client, in io.Reader, out io.Writer, logger *logrus.Logger) *Chat {
	c := &Chat{asst: asst, weather: wc, logger: logger, in: in, out: out}
	c.metrics.reset()
	asst.OnExchange(c.onExchange)
	return c
}

// Serve runs an interactive chat on stdin/stdout until EOF, /quit or a
// termination signal.
func Serve(cfg *config.Config, logger *logrus.Logger) error {
	if err := config.MustStatePaths(cfg); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	asst, err := assistant.FromConfig(ctx, cfg, logger)
	if err != nil {
		return err
	}
	chat := NewChat(asst, weather.NewFromConfig(cfg, logger), os.Stdin, os.Stdout, logger)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case s := <-sigCh:
			logger.Infof("received signal %s, shutting down", s)
			cancel()
		case <-ctx.Done():
		}
	}()

	err = chat.Run(ctx)
	asst.StopListening()
	if cerr := asst.CancelSpeech(); cerr != nil {
		logger.Warnf("cancel speech: %v", cerr)
	}
	return err
}

// Run reads lines until input ends, /quit, or ctx is cancelled.
func (c *Chat) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	c.greet()
	for {
		c.prompt()
		select {
		case <-ctx.Done():
			c.println("")
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			if quit := c.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

func (c *Chat) greet() {
	s := c.asst.Snapshot()
	c.printf("Farmer assistant. Ask a farming question, or /help for commands.\n")
	c.printf("language: %s  voice input: %s  voice output: %s\n",
		s.Language, availability(s.VoiceInput), availability(s.VoiceOutput))
}

func (c *Chat) prompt() {
	c.printf("> ")
}

func (c *Chat) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		c.ask(ctx, line)
		return false
	}
	name, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(name) {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		c.help()
	case "listen":
		c.listen(ctx)
	case "stop":
		c.asst.StopListening()
	case "play":
		c.play(ctx, arg)
	case "pause":
		c.report(c.asst.PauseSpeech())
	case "resume":
		c.report(c.asst.ResumeSpeech())
	case "cancel":
		c.report(c.asst.CancelSpeech())
	case "lang":
		c.lang(arg)
	case "weather":
		c.lookupWeather(ctx, arg)
	case "disease":
		c.println(diseaseNotice)
	case "history":
		c.history()
	case "stats":
		c.outMu.Lock()
		c.metrics.write(c.out)
		c.outMu.Unlock()
	default:
		c.printf("unknown command /%s (try /help)\n", name)
	}
	return false
}

func (c *Chat) ask(ctx context.Context, text string) {
	err := c.asst.SubmitText(ctx, text)
	switch {
	case errors.Is(err, assistant.ErrBusy):
		c.metrics.incRejected()
		c.println("still waiting for the previous answer")
	case err != nil:
		c.printf("%v\n", err)
	}
}

func (c *Chat) onExchange(e assistant.Exchange) {
	c.metrics.incQuestions()
	if e.Voice {
		c.printf("\nyou (voice): %s\n", e.Question)
	}
	if e.Err != nil {
		c.metrics.incFailures()
		c.printf("! %s\n", assistant.Describe(e.Err))
		return
	}
	c.metrics.incAnswers()
	n := len(c.asst.Snapshot().Messages)
	c.printf("assistant [%d]: %s\n", n, e.Answer)
}

func (c *Chat) listen(ctx context.Context) {
	err := c.asst.SubmitVoice(ctx)
	switch {
	case err == nil:
		c.metrics.incVoiceSessions()
		c.println("listening... speak your question (/stop to cancel)")
	case speech.IsUnsupported(err):
		c.println("voice input is not available; configure [speech_input] or run `agrivoice doctor`")
	case errors.Is(err, listen.ErrAlreadyListening):
		c.println("already listening")
	case errors.Is(err, assistant.ErrBusy):
		c.metrics.incRejected()
		c.println("still waiting for the previous answer")
	default:
		c.printf("listen: %v\n", err)
	}
}

func (c *Chat) play(ctx context.Context, arg string) {
	msgs := c.asst.Snapshot().Messages
	var target *assistant.Message
	if arg == "" {
		for i := len(msgs) - 1; i >= 0; i-- {
			if msgs[i].Sender == assistant.SenderAssistant {
				target = &msgs[i]
				break
			}
		}
		if target == nil {
			c.println("no answer to play yet")
			return
		}
	} else {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(msgs) {
			c.printf("no message %q (see /history)\n", arg)
			return
		}
		target = &msgs[n-1]
	}
	err := c.asst.Vocalize(ctx, target.ID)
	switch {
	case err == nil:
		c.metrics.incUtterances()
	case errors.Is(err, assistant.ErrNotAssistantMessage):
		c.println("only assistant answers can be played")
	case speech.IsUnsupported(err):
		c.println("voice output is not available; configure [speech_output] or run `agrivoice doctor`")
	default:
		c.printf("play: %v\n", err)
	}
}

func (c *Chat) lang(code string) {
	if code == "" {
		current := c.asst.Snapshot().Language
		for _, l := range speech.Languages() {
			mark := " "
			if l.Code == current {
				mark = "*"
			}
			c.printf("%s %s  %-10s %s\n", mark, l.Code, l.Name, l.Locale)
		}
		return
	}
	if !speech.IsKnownLanguage(code) {
		c.printf("unknown language %q; speech will use %s\n", code, speech.DefaultLocale)
	}
	c.asst.SetLanguage(code)
	c.printf("language set to %s (%s)\n", strings.ToLower(code), speech.LocaleFor(code))
}

func (c *Chat) lookupWeather(ctx context.Context, city string) {
	if city == "" {
		c.println("usage: /weather <city>")
		return
	}
	if c.weather == nil {
		c.println("weather is not configured")
		return
	}
	r, err := c.weather.Lookup(ctx, city)
	if err != nil {
		c.printf("weather: %v\n", err)
		return
	}
	c.outMu.Lock()
	defer c.outMu.Unlock()
	if err := r.WriteText(c.out); err != nil {
		c.logger.Warnf("write weather: %v", err)
	}
}

func (c *Chat) history() {
	s := c.asst.Snapshot()
	if len(s.Messages) == 0 {
		c.println("no messages yet")
	}
	for i, m := range s.Messages {
		c.printf("[%d] %s %-9s %s\n", i+1, m.CreatedAt.Format("15:04"), m.Sender, m.Text)
	}
	if s.LastError != "" {
		c.printf("! %s\n", s.LastError)
	}
}

func (c *Chat) help() {
	c.println(`commands:
  /listen          ask by voice (/stop to cancel)
  /play [n]        read an answer aloud (default: latest)
  /pause /resume /cancel   control playback
  /lang [code]     show or set the language (en hi te ta mr kn ml)
  /weather <city>  current weather and 5-day forecast
  /disease         plant disease recognition
  /history         show the conversation
  /stats           session counters
  /quit            leave`)
}

func (c *Chat) report(err error) {
	if err != nil {
		c.printf("%v\n", err)
	}
}

func (c *Chat) printf(format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	_, _ = fmt.Fprintf(c.out, format, args...)
}

func (c *Chat) println(line string) {
	c.printf("%s\n", line)
}

func availability(ok bool) string {
	if ok {
		return "on"
	}
	return "off"
}
