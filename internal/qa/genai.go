package qa

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"agrivoice/internal/config"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// GenAIClient answers through the Google Gen AI SDK. It shares the
// GeminiClient contract and error taxonomy.
type GenAIClient struct {
	client *genai.Client
	opts   Options
	logger *logrus.Logger
}

var _ Asker = (*GenAIClient)(nil)

// NewGenAIClient creates the SDK client. A missing API key is reported by
// Ask, not here, so the assistant can surface it as a configuration error.
func NewGenAIClient(ctx context.Context, opts Options, logger *logrus.Logger) (*GenAIClient, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	opts = opts.withDefaults()
	c := &GenAIClient{opts: opts, logger: logger}
	if opts.APIKey == "" {
		return c, nil
	}
	cc := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: opts.Timeout},
	}
	if opts.Endpoint != config.DefaultEndpoint {
		cc.HTTPOptions = splitEndpoint(opts.Endpoint)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	c.client = client
	return c, nil
}

func (c *GenAIClient) Ask(ctx context.Context, question string) (string, error) {
	if c.client == nil {
		return "", &ConfigurationError{Setting: "assistant.api_key (GEMINI_API_KEY)"}
	}
	temp := float32(*c.opts.Temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(c.opts.MaxOutputTokens),
	}
	res, err := c.client.Models.GenerateContent(ctx, c.opts.Model, genai.Text(Prompt(question)), cfg)
	if err != nil {
		return "", mapGenAIError(err)
	}
	text := strings.TrimSpace(res.Text())
	if text == "" {
		return "", &MalformedResponseError{Reason: "empty answer text"}
	}
	return text, nil
}

func mapGenAIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{StatusCode: apiErr.Code, Body: apiErr.Message, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &UpstreamError{StatusCode: apiErrPtr.Code, Body: apiErrPtr.Message, Err: err}
	}
	return &UpstreamError{Err: err}
}

// splitEndpoint turns ".../v1beta" into the SDK's base URL and API version.
func splitEndpoint(endpoint string) genai.HTTPOptions {
	endpoint = strings.TrimRight(endpoint, "/")
	idx := strings.LastIndex(endpoint, "/")
	if idx > 0 && strings.HasPrefix(endpoint[idx+1:], "v1") {
		return genai.HTTPOptions{BaseURL: endpoint[:idx+1], APIVersion: endpoint[idx+1:]}
	}
	return genai.HTTPOptions{BaseURL: endpoint + "/"}
}
