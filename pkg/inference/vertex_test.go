package inference

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

type failingTokenSource struct{}

func (failingTokenSource) Token() (*oauth2.Token, error) {
	return nil, errors.New("gcloud: not logged in")
}

func newTestVertex(t *testing.T, handler http.HandlerFunc, opts ...Option) *Vertex {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]Option{
		WithEndpoint(srv.URL + "/v1/projects/p/locations/us-east5/publishers/anthropic/models/m:rawPredict"),
		WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})),
		WithHTTPClient(srv.Client()),
	}, opts...)

	v, err := NewVertex(opts...)
	if err != nil {
		t.Fatalf("NewVertex failed: %v", err)
	}
	return v
}

const okResponse = `{
	"id": "msg_01",
	"type": "message",
	"role": "assistant",
	"model": "claude-3-5-sonnet-20240620",
	"content": [{"type": "text", "text": "Hi there!"}],
	"stop_reason": "end_turn",
	"usage": {"input_tokens": 12, "output_tokens": 4}
}`

func TestVertex_Chat(t *testing.T) {
	var got rawPredictRequest

	v := newTestVertex(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
			t.Errorf("Unexpected Authorization header %q", auth)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json; charset=utf-8" {
			t.Errorf("Unexpected Content-Type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(okResponse))
	})

	resp, err := v.Chat(context.Background(), &ChatRequest{
		Messages: []Message{
			NewUserMessage("Hello"),
			NewAssistantMessage("Hey"),
			NewUserMessage("How are you?"),
		},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if resp.Message.Role != RoleAssistant || resp.Message.Content != "Hi there!" {
		t.Errorf("Unexpected message %+v", resp.Message)
	}
	if resp.StopReason != "end_turn" {
		t.Errorf("Expected stop_reason end_turn, got %q", resp.StopReason)
	}
	if resp.Usage.Total() != 16 {
		t.Errorf("Expected 16 tokens, got %d", resp.Usage.Total())
	}

	if got.AnthropicVersion != "vertex-2023-10-16" {
		t.Errorf("Unexpected anthropic_version %q", got.AnthropicVersion)
	}
	if got.MaxTokens != 1256 {
		t.Errorf("Expected max_tokens 1256, got %d", got.MaxTokens)
	}
	if got.Stream {
		t.Error("Expected stream false")
	}
	if len(got.Messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(got.Messages))
	}
	last := got.Messages[2]
	if last.Role != RoleUser || len(last.Content) != 1 || last.Content[0].Type != "text" || last.Content[0].Text != "How are you?" {
		t.Errorf("Unexpected last message %+v", last)
	}
}

func TestVertex_WireFormat(t *testing.T) {
	var raw map[string]any

	v := newTestVertex(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		w.Write([]byte(okResponse))
	})

	if _, err := v.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("hi")}}); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	// stream must be present and false; optional fields must be absent.
	if s, ok := raw["stream"]; !ok || s != false {
		t.Errorf("Expected \"stream\": false, got %v", raw["stream"])
	}
	for _, key := range []string{"system", "temperature"} {
		if _, ok := raw[key]; ok {
			t.Errorf("Expected %q to be omitted", key)
		}
	}
}

func TestVertex_DropsLeadingAssistant(t *testing.T) {
	var got rawPredictRequest
	v := newTestVertex(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(okResponse))
	})

	_, err := v.Chat(context.Background(), &ChatRequest{
		Messages: []Message{
			NewAssistantMessage("Error"),
			NewUserMessage("Again?"),
		},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != RoleUser {
		t.Errorf("Expected only the user message, got %+v", got.Messages)
	}
}

func TestVertex_NoUserMessage(t *testing.T) {
	var hits atomic.Int32
	v := newTestVertex(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})

	_, err := v.Chat(context.Background(), &ChatRequest{
		Messages: []Message{NewAssistantMessage("only me")},
	})
	if !errors.Is(err, ErrNoMessages) {
		t.Errorf("Expected ErrNoMessages, got %v", err)
	}
	if hits.Load() != 0 {
		t.Error("Expected no request to be sent")
	}
}

func TestVertex_RequestOverrides(t *testing.T) {
	var got rawPredictRequest
	v := newTestVertex(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(okResponse))
	}, WithSystem("Be brief."))

	temp := 0.2
	_, err := v.Chat(context.Background(), &ChatRequest{
		Messages:    []Message{NewUserMessage("hi")},
		MaxTokens:   64,
		Temperature: &temp,
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if got.MaxTokens != 64 || got.System != "Be brief." || got.Temperature == nil || *got.Temperature != 0.2 {
		t.Errorf("Overrides not applied: %+v", got)
	}
}

func TestVertex_APIError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		wantCode string
	}{
		{
			name:     "anthropic style",
			status:   400,
			body:     `{"type":"error","error":{"type":"invalid_request_error","message":"messages: roles must alternate"}}`,
			wantMsg:  "messages: roles must alternate",
			wantCode: "invalid_request_error",
		},
		{
			name:     "google style",
			status:   403,
			body:     `{"error":{"code":403,"message":"Permission denied on resource project p.","status":"PERMISSION_DENIED"}}`,
			wantMsg:  "Permission denied on resource project p.",
			wantCode: "PERMISSION_DENIED",
		},
		{
			name:    "plain text",
			status:  502,
			body:    "bad gateway",
			wantMsg: "bad gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestVertex(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := v.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("hi")}})
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Expected *APIError, got %T: %v", err, err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, apiErr.StatusCode)
			}
			if apiErr.Message != tt.wantMsg {
				t.Errorf("Expected message %q, got %q", tt.wantMsg, apiErr.Message)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("Expected code %q, got %q", tt.wantCode, apiErr.Code)
			}
			if apiErr.Body != tt.body {
				t.Errorf("Expected raw body to be kept")
			}
		})
	}
}

func TestVertex_NoRetryByDefault(t *testing.T) {
	var hits atomic.Int32
	v := newTestVertex(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := v.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("hi")}})
	if err == nil {
		t.Fatal("Expected error")
	}
	if hits.Load() != 1 {
		t.Errorf("Expected exactly 1 attempt, got %d", hits.Load())
	}
}

func TestVertex_RetryThenSuccess(t *testing.T) {
	var hits atomic.Int32
	v := newTestVertex(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if len(body) == 0 {
			t.Error("Expected request body on every attempt")
		}
		if hits.Add(1) < 3 {
			w.WriteHeader(529)
			return
		}
		w.Write([]byte(okResponse))
	}, WithRetry(2, time.Millisecond))

	resp, err := v.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("hi")}})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Message.Content != "Hi there!" {
		t.Errorf("Unexpected reply %q", resp.Message.Content)
	}
	if hits.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", hits.Load())
	}
}

func TestVertex_RetriesOnlyRetryableStatus(t *testing.T) {
	tests := []struct {
		status   int
		wantHits int32
	}{
		{http.StatusBadRequest, 1},
		{http.StatusUnauthorized, 1},
		{http.StatusForbidden, 1},
		{http.StatusTooManyRequests, 3},
		{http.StatusInternalServerError, 3},
		{529, 3},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var hits atomic.Int32
			v := newTestVertex(t, func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(tt.status)
			}, WithRetry(2, time.Millisecond))

			_, err := v.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("hi")}})
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Expected *APIError, got %T: %v", err, err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, apiErr.StatusCode)
			}
			if hits.Load() != tt.wantHits {
				t.Errorf("Expected %d attempts, got %d", tt.wantHits, hits.Load())
			}
		})
	}
}

func TestAPIError_Classification(t *testing.T) {
	tests := []struct {
		status       int
		retryable    bool
		unauthorized bool
	}{
		{401, false, true},
		{403, false, false},
		{404, false, false},
		{429, true, false},
		{503, true, false},
	}
	for _, tt := range tests {
		e := &APIError{StatusCode: tt.status}
		if e.IsRetryable() != tt.retryable {
			t.Errorf("%d: IsRetryable = %v", tt.status, e.IsRetryable())
		}
		if e.IsUnauthorized() != tt.unauthorized {
			t.Errorf("%d: IsUnauthorized = %v", tt.status, e.IsUnauthorized())
		}
	}
}

func TestVertex_EmptyContent(t *testing.T) {
	v := newTestVertex(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[],"stop_reason":"end_turn"}`))
	})

	_, err := v.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("hi")}})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Expected ErrEmptyResponse, got %v", err)
	}
}

func TestVertex_CredentialFailure(t *testing.T) {
	var hits atomic.Int32
	v := newTestVertex(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}, WithTokenSource(failingTokenSource{}))

	_, err := v.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("hi")}})
	if !errors.Is(err, ErrCredentials) {
		t.Errorf("Expected ErrCredentials, got %v", err)
	}
	if hits.Load() != 0 {
		t.Error("Expected no request without a token")
	}
	if err := v.Health(context.Background()); !errors.Is(err, ErrCredentials) {
		t.Errorf("Expected Health to report ErrCredentials, got %v", err)
	}
}

func TestNewVertex_Validate(t *testing.T) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "x"})

	if _, err := NewVertex(WithTokenSource(ts)); !errors.Is(err, ErrNoEndpoint) {
		t.Errorf("Expected ErrNoEndpoint, got %v", err)
	}
	if _, err := NewVertex(WithEndpoint("https://example.com")); !errors.Is(err, ErrNoTokenSource) {
		t.Errorf("Expected ErrNoTokenSource, got %v", err)
	}
	if _, err := NewVertex(WithEndpoint("https://example.com"), WithTokenSource(ts), WithMaxTokens(0)); err == nil {
		t.Error("Expected error for zero max tokens")
	}
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		location string
		want     string
	}{
		{"us-east5", "https://us-east5-aiplatform.googleapis.com/v1/projects/proj/locations/us-east5/publishers/anthropic/models/claude-3-5-sonnet@20240620:rawPredict"},
		{"global", "https://aiplatform.googleapis.com/v1/projects/proj/locations/global/publishers/anthropic/models/claude-3-5-sonnet@20240620:rawPredict"},
	}
	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			if got := EndpointURL("proj", tt.location, "claude-3-5-sonnet@20240620"); got != tt.want {
				t.Errorf("EndpointURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTrimLeadingAssistant(t *testing.T) {
	msgs := []Message{
		NewAssistantMessage("a"),
		NewAssistantMessage("b"),
		NewUserMessage("c"),
		NewAssistantMessage("d"),
	}
	got := TrimLeadingAssistant(msgs)
	if len(got) != 2 || got[0].Content != "c" {
		t.Errorf("Unexpected result %+v", got)
	}
	if got := TrimLeadingAssistant(msgs[:2]); len(got) != 0 {
		t.Errorf("Expected empty result, got %+v", got)
	}
}

func TestMock(t *testing.T) {
	ctx := context.Background()
	m := NewMock("Mock response")

	resp, err := m.Chat(ctx, &ChatRequest{Messages: []Message{NewUserMessage("Hello")}})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Message.Content != "Mock response" {
		t.Errorf("Unexpected content %q", resp.Message.Content)
	}
	if m.CallCount("Chat") != 1 {
		t.Errorf("Expected 1 Chat call, got %d", m.CallCount("Chat"))
	}
	if last := m.LastRequest(); last == nil || last.Messages[0].Content != "Hello" {
		t.Errorf("Expected request to be recorded, got %+v", last)
	}

	m.Reset()
	if len(m.Calls()) != 0 || m.LastRequest() != nil {
		t.Error("Expected no calls after reset")
	}

	failing := WithError(ErrProviderUnavailable)
	if _, err := failing.Chat(ctx, &ChatRequest{}); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("Expected ErrProviderUnavailable, got %v", err)
	}
}
