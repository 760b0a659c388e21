package qa

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"agrivoice/internal/logging"
)

func newTestClient(srv *httptest.Server, key string) *GeminiClient {
	return NewGeminiClient(Options{APIKey: key, Endpoint: srv.URL}, logging.NewTestLogger())
}

func TestGeminiNoKey(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	_, err := newTestClient(srv, "").Ask(context.Background(), "hi")
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if called {
		t.Fatalf("no request expected without a key")
	}
}

func TestGeminiRequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/models/gemini-2.0-flash:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "k-123" {
			t.Errorf("key = %q", r.URL.Query().Get("key"))
		}
		var body struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
			GenerationConfig struct {
				Temperature     float64 `json:"temperature"`
				MaxOutputTokens int     `json:"maxOutputTokens"`
			} `json:"generationConfig"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		want := "You are a helpful agricultural assistant for Indian farmers. Answer the following farming question in a clear, practical way: How to treat wheat rust?"
		if len(body.Contents) != 1 || len(body.Contents[0].Parts) != 1 || body.Contents[0].Parts[0].Text != want {
			t.Errorf("unexpected contents: %+v", body.Contents)
		}
		if body.GenerationConfig.Temperature != 0.7 || body.GenerationConfig.MaxOutputTokens != 500 {
			t.Errorf("unexpected generation config: %+v", body.GenerationConfig)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":" Use fungicide X. "}]}}]}`))
	}))
	defer srv.Close()

	answer, err := newTestClient(srv, "k-123").Ask(context.Background(), "How to treat wheat rust?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if answer != "Use fungicide X." {
		t.Fatalf("answer = %q", answer)
	}
}

func TestGeminiFailures(t *testing.T) {
	cases := []struct {
		name     string
		handler  http.HandlerFunc
		kind     Kind
		status   int
		contains string
	}{
		{"status_500", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(500)
			_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
		}, KindUpstream, 500, "Error 500: Failed to fetch AI response"},
		{"status_403", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(403) }, KindUpstream, 403, "Error 403"},
		{"bad_json", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("not-json")) }, KindMalformed, 0, "decode body"},
		{"empty_candidates", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"candidates":[]}`))
		}, KindMalformed, 0, "candidates[0]"},
		{"missing_text", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{}]}}]}`))
		}, KindMalformed, 0, "candidates[0]"},
		{"blank_text", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`))
		}, KindMalformed, 0, "empty answer"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()
			_, err := newTestClient(srv, "key").Ask(context.Background(), "hi")
			if err == nil {
				t.Fatalf("expected error")
			}
			kind, status := Classify(err)
			if kind != tc.kind || status != tc.status {
				t.Fatalf("classify = (%v, %d), want (%v, %d)", kind, status, tc.kind, tc.status)
			}
			if !strings.Contains(err.Error(), tc.contains) {
				t.Fatalf("error %q does not mention %q", err, tc.contains)
			}
		})
	}
}

func TestGeminiTransportFailure(t *testing.T) {
	c := NewGeminiClient(Options{APIKey: "secret-key"}, logging.NewTestLogger())
	c.HTTPClient = &http.Client{Timeout: time.Second, Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: no route to host")
	})}
	_, err := c.Ask(context.Background(), "hi")
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.StatusCode != 0 {
		t.Fatalf("status = %d, want 0", ue.StatusCode)
	}
	if strings.Contains(err.Error(), "secret-key") {
		t.Fatalf("api key leaked into error: %v", err)
	}
}

func TestClassifyWrapped(t *testing.T) {
	if k, _ := Classify(errors.New("plain")); k != KindUnknown {
		t.Fatalf("plain error kind = %v", k)
	}
	if k, _ := Classify(&ConfigurationError{Setting: "x"}); k != KindConfiguration {
		t.Fatalf("configuration kind = %v", k)
	}
	wrapped := errors.Join(errors.New("ctx"), &UpstreamError{StatusCode: 502})
	if k, s := Classify(wrapped); k != KindUpstream || s != 502 {
		t.Fatalf("wrapped upstream = (%v, %d)", k, s)
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
