// Package qa asks a remote LLM farming questions.
package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agrivoice/internal/config"

	"github.com/sirupsen/logrus"
)

const (
	DefaultTemperature     = 0.7
	DefaultMaxOutputTokens = 500

	promptPrefix = "You are a helpful agricultural assistant for Indian farmers. Answer the following farming question in a clear, practical way: "
)

// Asker answers a single question. Implementations are stateless: no
// conversation history is sent upstream.
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Options configures a backend.
type Options struct {
	APIKey          string
	Model           string
	Endpoint        string
	// Temperature is nil when unset; zero is a valid sampling temperature.
	Temperature     *float64
	MaxOutputTokens int
	// Timeout bounds one request; zero waits for the upstream to settle.
	Timeout time.Duration
}

// OptionsFromConfig reads the [assistant] section.
func OptionsFromConfig(cfg *config.Config) Options {
	temp := cfg.Assistant.Temperature
	o := Options{
		APIKey:          strings.TrimSpace(cfg.Assistant.APIKey),
		Model:           cfg.Assistant.Model,
		Endpoint:        cfg.Assistant.Endpoint,
		Temperature:     &temp,
		MaxOutputTokens: cfg.Assistant.MaxOutputTokens,
		Timeout:         time.Duration(cfg.Assistant.TimeoutSec * float64(time.Second)),
	}
	return o.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.Model == "" {
		o.Model = config.DefaultModel
	}
	if o.Endpoint == "" {
		o.Endpoint = config.DefaultEndpoint
	}
	o.Endpoint = strings.TrimRight(o.Endpoint, "/")
	if o.Temperature == nil {
		t := DefaultTemperature
		o.Temperature = &t
	}
	if o.MaxOutputTokens <= 0 {
		o.MaxOutputTokens = DefaultMaxOutputTokens
	}
	return o
}

// Prompt frames a farmer's question for the model.
func Prompt(question string) string {
	return promptPrefix + question
}

// New builds the backend selected by assistant.backend.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (Asker, error) {
	opts := OptionsFromConfig(cfg)
	switch strings.ToLower(strings.TrimSpace(cfg.Assistant.Backend)) {
	case "", "gemini":
		return NewGeminiClient(opts, logger), nil
	case "genai":
		return NewGenAIClient(ctx, opts, logger)
	default:
		return nil, fmt.Errorf("unknown assistant backend %q (want gemini or genai)", cfg.Assistant.Backend)
	}
}

// ConfigurationError reports a missing credential or setting.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("assistant not configured: %s is missing", e.Setting)
}

// UpstreamError reports a non-2xx response or a transport failure. StatusCode
// is zero when no response was received.
type UpstreamError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("assistant unreachable: %v", e.Err)
	}
	return fmt.Sprintf("Error %d: Failed to fetch AI response", e.StatusCode)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// MalformedResponseError reports a 2xx body without a usable answer.
type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed assistant response: %s: %v", e.Reason, e.Err)
	}
	return "malformed assistant response: " + e.Reason
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Kind classifies err into the failure taxonomy.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindUpstream
	KindMalformed
)

// Classify returns the kind of err and, for upstream failures, the status.
func Classify(err error) (Kind, int) {
	var (
		ce *ConfigurationError
		ue *UpstreamError
		me *MalformedResponseError
	)
	switch {
	case errors.As(err, &ce):
		return KindConfiguration, 0
	case errors.As(err, &ue):
		return KindUpstream, ue.StatusCode
	case errors.As(err, &me):
		return KindMalformed, 0
	default:
		return KindUnknown, 0
	}
}
