package qa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// GeminiClient calls the generateContent REST endpoint directly.
type GeminiClient struct {
	HTTPClient *http.Client
	opts       Options
	logger     *logrus.Logger
}

var _ Asker = (*GeminiClient)(nil)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func NewGeminiClient(opts Options, logger *logrus.Logger) *GeminiClient {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	opts = opts.withDefaults()
	return &GeminiClient{
		HTTPClient: &http.Client{Timeout: opts.Timeout},
		opts:       opts,
		logger:     logger,
	}
}

func (c *GeminiClient) Ask(ctx context.Context, question string) (string, error) {
	if c.opts.APIKey == "" {
		return "", &ConfigurationError{Setting: "assistant.api_key (GEMINI_API_KEY)"}
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.opts.Endpoint, url.PathEscape(c.opts.Model), url.QueryEscape(c.opts.APIKey))

	reqBody, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: Prompt(question)}}}},
		GenerationConfig: generationConfig{
			Temperature:     *c.opts.Temperature,
			MaxOutputTokens: c.opts.MaxOutputTokens,
		},
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", &UpstreamError{Err: redactKey(err, c.opts.APIKey)}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		c.logger.Debugf("gemini status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
		return "", &UpstreamError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", &MalformedResponseError{Reason: "decode body", Err: err}
	}
	if len(gr.Candidates) == 0 || gr.Candidates[0].Content == nil ||
		len(gr.Candidates[0].Content.Parts) == 0 || gr.Candidates[0].Content.Parts[0].Text == nil {
		return "", &MalformedResponseError{Reason: "missing candidates[0].content.parts[0].text"}
	}
	answer := strings.TrimSpace(*gr.Candidates[0].Content.Parts[0].Text)
	if answer == "" {
		return "", &MalformedResponseError{Reason: "empty answer text"}
	}
	return answer, nil
}

// redactKey keeps the API key out of transport errors, which quote the URL.
func redactKey(err error, key string) error {
	var ue *url.Error
	if key != "" && errors.As(err, &ue) {
		ue.URL = strings.ReplaceAll(ue.URL, url.QueryEscape(key), "REDACTED")
	}
	return err
}
