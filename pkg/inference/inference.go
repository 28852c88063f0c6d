// Package inference generates assistant replies from a conversation.
//
// Provider abstracts a hosted chat model. Vertex talks to Anthropic models
// served through Vertex AI's rawPredict endpoint; Mock is provided for tests.
//
// Example usage:
//
//	ts, _ := credentials.New(ctx, credentials.DefaultConfig())
//	client, _ := inference.NewVertex(
//	    inference.WithEndpoint(inference.EndpointURL("my-project", "us-east5", "claude-3-5-sonnet@20240620")),
//	    inference.WithTokenSource(ts),
//	)
//	defer client.Close()
//
//	resp, _ := client.Chat(ctx, &inference.ChatRequest{
//	    Messages: []inference.Message{
//	        inference.NewUserMessage("Hello!"),
//	    },
//	})
package inference

import "context"

// Provider is the chat generation interface.
type Provider interface {
	// Chat generates a response from a sequence of messages.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Health checks that the provider can authenticate.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// ChatRequest for chat completions.
type ChatRequest struct {
	// Messages is the conversation history, oldest first.
	Messages []Message

	// System is an optional system prompt.
	System string

	// MaxTokens limits the response length. Zero uses the provider default.
	MaxTokens int

	// Temperature controls randomness. Nil uses the model default.
	Temperature *float64
}

// ChatResponse from chat completion.
type ChatResponse struct {
	// Message is the assistant's response.
	Message Message

	// StopReason indicates why generation stopped (end_turn, max_tokens, ...).
	StopReason string

	// Usage tracks token consumption.
	Usage Usage

	// Model used for generation.
	Model string

	// LatencyMs is the response time in milliseconds.
	LatencyMs int64
}

// Usage tracks token consumption for billing and limits.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total returns input plus output tokens.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}
