package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-clawd/internal/httpc"
)

const providerVertex = "vertex"

// Vertex calls Anthropic models through the Vertex AI rawPredict endpoint.
type Vertex struct {
	config *Config
	http   *http.Client
	logger *slog.Logger
}

// NewVertex creates a new Vertex client.
func NewVertex(opts ...Option) (*Vertex, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := cfg.HTTPClient
	if client == nil {
		client = httpc.NewClient(cfg.Timeout)
	}

	return &Vertex{
		config: cfg,
		http:   client,
		logger: cfg.Logger.With("component", "inference.vertex"),
	}, nil
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiMessage struct {
	Role    Role           `json:"role"`
	Content []contentBlock `json:"content"`
}

type rawPredictRequest struct {
	AnthropicVersion string       `json:"anthropic_version"`
	Messages         []apiMessage `json:"messages"`
	System           string       `json:"system,omitempty"`
	MaxTokens        int          `json:"max_tokens"`
	Temperature      *float64     `json:"temperature,omitempty"`
	Stream           bool         `json:"stream"`
}

type rawPredictResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Chat sends the conversation and returns the first content block as the reply.
func (v *Vertex) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	payload, err := v.buildPayload(req)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, WrapError(providerVertex, fmt.Errorf("marshal payload: %w", err))
	}

	token, err := v.config.TokenSource.Token()
	if err != nil {
		return nil, WrapError(providerVertex, fmt.Errorf("%w: %v", ErrCredentials, err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(providerVertex, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Authorization", "Bearer "+token.AccessToken)
	httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := v.doWithRetry(ctx, httpReq, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result rawPredictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, WrapError(providerVertex, fmt.Errorf("decode response: %w", err))
	}

	if len(result.Content) == 0 {
		return nil, WrapError(providerVertex, ErrEmptyResponse)
	}

	latency := time.Since(start).Milliseconds()
	v.logger.Debug("chat completed",
		"messages", len(payload.Messages),
		"input_tokens", result.Usage.InputTokens,
		"output_tokens", result.Usage.OutputTokens,
		"stop_reason", result.StopReason,
		"latency_ms", latency,
	)

	return &ChatResponse{
		Message:    NewAssistantMessage(result.Content[0].Text),
		StopReason: result.StopReason,
		Usage: Usage{
			InputTokens:  result.Usage.InputTokens,
			OutputTokens: result.Usage.OutputTokens,
		},
		Model:     result.Model,
		LatencyMs: latency,
	}, nil
}

func (v *Vertex) buildPayload(req *ChatRequest) (*rawPredictRequest, error) {
	msgs := TrimLeadingAssistant(req.Messages)
	if len(msgs) == 0 {
		return nil, WrapError(providerVertex, ErrNoMessages)
	}
	if dropped := len(req.Messages) - len(msgs); dropped > 0 {
		v.logger.Debug("dropped leading assistant messages", "count", dropped)
	}

	payload := &rawPredictRequest{
		AnthropicVersion: v.config.AnthropicVersion,
		Messages:         make([]apiMessage, 0, len(msgs)),
		System:           v.config.System,
		MaxTokens:        v.config.MaxTokens,
		Temperature:      v.config.Temperature,
		Stream:           false,
	}
	if req.System != "" {
		payload.System = req.System
	}
	if req.MaxTokens > 0 {
		payload.MaxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		payload.Temperature = req.Temperature
	}

	for _, m := range msgs {
		payload.Messages = append(payload.Messages, apiMessage{
			Role:    m.Role,
			Content: []contentBlock{{Type: "text", Text: m.Content}},
		})
	}
	return payload, nil
}

// Health checks that an access token can be obtained.
func (v *Vertex) Health(ctx context.Context) error {
	if _, err := v.config.TokenSource.Token(); err != nil {
		return WrapError(providerVertex, fmt.Errorf("%w: %v", ErrCredentials, err))
	}
	return nil
}

// Close releases resources.
func (v *Vertex) Close() error {
	v.http.CloseIdleConnections()
	return nil
}

// doWithRetry executes a request, retrying retryable API errors. Non-2xx
// responses come back as *APIError.
func (v *Vertex) doWithRetry(ctx context.Context, req *http.Request, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= v.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(v.config.RetryDelay * time.Duration(attempt)):
			}
			// Reset body for retry
			req.Body = io.NopCloser(bytes.NewReader(body))
		}

		resp, err := v.http.Do(req)
		if err != nil {
			lastErr = WrapError(providerVertex, err)
			if ctx.Err() != nil {
				return nil, lastErr
			}
			v.logger.Warn("request failed",
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			return resp, nil
		}

		apiErr := v.parseError(resp)
		resp.Body.Close()
		if attempt < v.config.MaxRetries && apiErr.IsRetryable() {
			lastErr = apiErr
			v.logger.Warn("retrying request",
				"attempt", attempt+1,
				"status", resp.StatusCode,
			)
			continue
		}
		if apiErr.IsUnauthorized() || apiErr.IsForbidden() {
			v.logger.Warn("access token rejected, check the credential helper login",
				"status", apiErr.StatusCode,
			)
		}
		return nil, apiErr
	}

	return nil, lastErr
}

// parseError reads an error response. Vertex returns Google-style errors for
// routing and auth failures and Anthropic-style errors from the model itself.
func (v *Vertex) parseError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Status  string `json:"status"`
		} `json:"error"`
	}

	message := strings.TrimSpace(string(body))
	code := ""
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
		code = errResp.Error.Type
		if code == "" {
			code = errResp.Error.Status
		}
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Code:       code,
		Body:       string(body),
		Provider:   providerVertex,
	}
}

var _ Provider = (*Vertex)(nil)
