// Package assistant runs the voice conversation loop.
//
// Each turn listens for one utterance, sends it with the recent history to
// the chat model, records the exchange and speaks the reply:
//
//	a, _ := assistant.New(listener, provider, speaker, memory.NewStore(path),
//	    assistant.WithHistoryLimit(5),
//	)
//	err := a.Run(ctx)
//
// A turn where nothing was heard touches neither the memory file nor the
// network.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/teslashibe/go-clawd/pkg/inference"
	"github.com/teslashibe/go-clawd/pkg/memory"
)

// TurnResult describes a finished turn.
type TurnResult struct {
	Transcript string
	Reply      Reply
	Outcome    Outcome

	// SpeakErr is set when the reply could not be voiced.
	SpeakErr error
}

// Assistant ties a listener, a chat provider, a speaker and a memory store
// into a conversation loop.
type Assistant struct {
	cfg      *Config
	listener Listener
	chat     inference.Provider
	speaker  Speaker
	store    *memory.Store
	logger   *slog.Logger
}

// New creates an assistant.
func New(listener Listener, chat inference.Provider, speaker Speaker, store *memory.Store, opts ...Option) (*Assistant, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if chat == nil || store == nil {
		return nil, errors.New("assistant: chat provider and memory store are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Assistant{
		cfg:      cfg,
		listener: listener,
		chat:     chat,
		speaker:  speaker,
		store:    store,
		logger:   cfg.Logger.With("component", "assistant"),
	}, nil
}

// Config returns the assistant configuration.
func (a *Assistant) Config() Config {
	return *a.cfg
}

// Respond records text as a user turn, asks the model for a reply and
// records the reply. Memory never holds more than HistoryLimit turns,
// neither in the request nor on disk.
//
// On failure the reply carries ErrorReply and the cause. Under FailureSpeak
// the sentinel is recorded as the assistant turn; under FailureSilent only
// the user turn is kept. A cancelled context leaves memory untouched.
func (a *Assistant) Respond(ctx context.Context, text string) Reply {
	start := time.Now()

	conv := memory.NewConversation(a.store.Load())
	conv.Append(memory.RoleUser, text)
	conv.Prune(a.cfg.HistoryLimit)

	req := &inference.ChatRequest{
		Messages:  toMessages(conv.Turns()),
		MaxTokens: a.cfg.MaxTokens,
	}

	var reply Reply
	resp, err := a.chat.Chat(ctx, req)
	switch {
	case err != nil:
		reply = failed(err)
	case strings.TrimSpace(resp.Message.Content) == "":
		reply = failed(inference.ErrEmptyResponse)
	default:
		reply = Reply{Text: resp.Message.Content}
	}

	if !reply.OK() {
		if ctx.Err() != nil {
			a.emit(Event{Kind: KindChat, Text: reply.Text, Err: reply.Err, Latency: time.Since(start)})
			return reply
		}
		a.logger.Error("failed to generate reply", "error", reply.Err)
	} else {
		a.logger.Info("Assistant", "text", reply.Text,
			"stop_reason", resp.StopReason,
			"tokens", resp.Usage.Total(),
			"latency_ms", resp.LatencyMs,
		)
	}

	if reply.OK() || a.cfg.FailurePolicy == FailureSpeak {
		conv.Append(memory.RoleAssistant, reply.Text)
	}
	conv.Prune(a.cfg.HistoryLimit)

	if err := a.store.Save(conv.Turns()); err != nil {
		a.logger.Error("failed to save conversation", "path", a.store.Path(), "error", err)
	}

	a.emit(Event{
		Kind:    KindChat,
		Text:    reply.Text,
		Err:     reply.Err,
		Latency: time.Since(start),
		History: conv.Len(),
	})
	return reply
}

// Turn runs one listen, respond, speak cycle.
//
// Errors from the listener, including io.EOF, are returned as is. Chat
// and playback failures are reported in the result, not as errors, unless
// the context was cancelled.
func (a *Assistant) Turn(ctx context.Context) (TurnResult, error) {
	start := time.Now()
	text, err := a.listener.Listen(ctx)
	text = strings.TrimSpace(text)
	a.emit(Event{Kind: KindListen, Text: text, Err: err, Latency: time.Since(start)})
	if err != nil {
		return TurnResult{}, err
	}

	if text == "" {
		a.logger.Debug("nothing heard, skipping turn")
		res := TurnResult{Outcome: OutcomeEmpty}
		a.emit(Event{Kind: KindTurn, Outcome: res.Outcome, Latency: time.Since(start)})
		return res, nil
	}

	res := TurnResult{Transcript: text, Outcome: OutcomeOK}
	res.Reply = a.Respond(ctx, text)
	if !res.Reply.OK() {
		res.Outcome = OutcomeFailed
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
	}

	if res.Reply.OK() || a.cfg.FailurePolicy == FailureSpeak {
		if err := a.speak(ctx, res.Reply.Text); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			a.logger.Error("failed to speak reply", "error", err)
			res.SpeakErr = err
		}
	}

	a.emit(Event{Kind: KindTurn, Text: res.Reply.Text, Err: res.Reply.Err, Outcome: res.Outcome, Latency: time.Since(start)})
	return res, nil
}

func (a *Assistant) speak(ctx context.Context, text string) error {
	if a.speaker == nil {
		return nil
	}
	start := time.Now()
	err := a.speaker.Speak(ctx, text)
	a.emit(Event{Kind: KindSpeak, Text: text, Err: err, Latency: time.Since(start)})
	return err
}

// Run repeats Turn until the context is cancelled, the input is exhausted
// or MaxTurns is reached. Exhausted input and MaxTurns return nil.
func (a *Assistant) Run(ctx context.Context) error {
	a.logger.Info("conversation loop started",
		"history_limit", a.cfg.HistoryLimit,
		"failure_policy", a.cfg.FailurePolicy,
		"memory", a.store.Path(),
	)

	for n := 0; a.cfg.MaxTurns == 0 || n < a.cfg.MaxTurns; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := a.Turn(ctx); err != nil {
			if errors.Is(err, io.EOF) {
				a.logger.Info("input exhausted, stopping")
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("turn %d: %w", n+1, err)
		}
	}
	return nil
}

func (a *Assistant) emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	for _, o := range a.cfg.Observers {
		o.Observe(e)
	}
}

func toMessages(turns []memory.Turn) []inference.Message {
	msgs := make([]inference.Message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, inference.Message{Role: inference.Role(t.Role), Content: t.Content})
	}
	return msgs
}
