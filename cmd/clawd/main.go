// clawd: a voice assistant loop.
//
// Listens on the microphone, transcribes with Cloud Speech-to-Text, answers
// with an Anthropic model on Vertex AI, and speaks the reply with Cloud
// Text-to-Speech. The last few turns are kept in a JSON memory file.
//
// Usage:
//
//	PROJECT_ID=my-project LOCATION=us-east5 MODEL=claude-3-5-sonnet@20240620 go run ./cmd/clawd
//	go run ./cmd/clawd --input-mode stdin --playback-mode speaker
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"google.golang.org/api/option"

	"github.com/teslashibe/go-clawd/internal/config"
	"github.com/teslashibe/go-clawd/internal/log"
	"github.com/teslashibe/go-clawd/pkg/assistant"
	"github.com/teslashibe/go-clawd/pkg/audio"
	"github.com/teslashibe/go-clawd/pkg/audioio"
	"github.com/teslashibe/go-clawd/pkg/credentials"
	"github.com/teslashibe/go-clawd/pkg/inference"
	"github.com/teslashibe/go-clawd/pkg/memory"
	"github.com/teslashibe/go-clawd/pkg/metrics"
	"github.com/teslashibe/go-clawd/pkg/stt"
	"github.com/teslashibe/go-clawd/pkg/tts"
	"github.com/teslashibe/go-clawd/pkg/web"
)

var version = "0.1.0"

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}

	log.Init(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdin, log.L()); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("clawd stopped", "error", err)
		os.Exit(1)
	}
	log.Info("goodbye")
}

// run builds every component from cfg and runs the conversation loop until
// ctx is cancelled or the input is exhausted.
func run(ctx context.Context, cfg *config.Config, stdin io.Reader, logger *slog.Logger) error {
	logger.Info("clawd starting",
		"version", version,
		"endpoint", cfg.ChatEndpoint(),
		"input", cfg.Input.Mode,
		"playback", cfg.Playback.Mode,
	)

	ts, err := credentials.New(ctx, withLogger(cfg.CredentialsConfig(), logger))
	if err != nil {
		return err
	}
	googleClient := option.WithHTTPClient(credentials.HTTPClient(ctx, ts))

	chat, err := inference.NewVertex(
		inference.WithEndpoint(cfg.ChatEndpoint()),
		inference.WithAnthropicVersion(cfg.Chat.AnthropicVersion),
		inference.WithMaxTokens(cfg.Chat.MaxTokens),
		inference.WithTimeout(cfg.Chat.Timeout),
		inference.WithRetry(cfg.Chat.MaxRetries, inference.DefaultConfig().RetryDelay),
		inference.WithTokenSource(ts),
		inference.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	defer chat.Close()

	listener, cleanup, err := newListener(ctx, cfg, stdin, googleClient, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	speaker, err := newSpeaker(ctx, cfg, googleClient, logger)
	if err != nil {
		return err
	}

	m := metrics.New()
	latency := metrics.NewLatencyCollector(logger)
	opts := []assistant.Option{
		assistant.WithHistoryLimit(cfg.Memory.Limit),
		assistant.WithMaxTokens(cfg.Chat.MaxTokens),
		assistant.WithFailurePolicy(cfg.Assistant.FailurePolicy),
		assistant.WithMaxTurns(cfg.Assistant.MaxTurns),
		assistant.WithObserver(m),
		assistant.WithObserver(latency),
		assistant.WithLogger(logger),
	}

	store := memory.NewStore(cfg.Memory.Path, memory.WithLogger(logger))

	if cfg.Dashboard.Addr != "" {
		dash := web.NewServer(cfg.Dashboard.Addr, store, web.WithMetrics(m.Handler()), web.WithLogger(logger))
		opts = append(opts, assistant.WithObserver(dash))
		go func() {
			if err := dash.ListenAndServe(ctx); err != nil {
				logger.Warn("dashboard stopped", "error", err)
			}
		}()
	}

	a, err := assistant.New(listener, chat, speaker, store, opts...)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

func withLogger(cc credentials.Config, logger *slog.Logger) credentials.Config {
	cc.Logger = logger
	return cc
}

func newListener(ctx context.Context, cfg *config.Config, stdin io.Reader, googleClient option.ClientOption, logger *slog.Logger) (assistant.Listener, func(), error) {
	if cfg.Input.Mode == config.InputStdin {
		return assistant.NewLineListener(stdin, os.Stdout, logger), func() {}, nil
	}

	srcCfg := cfg.AudioSource()
	src, err := audioio.NewSource(srcCfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("audio input: %w", err)
	}

	recognizer, err := stt.NewGoogle(ctx,
		stt.WithSampleRate(srcCfg.SampleRate),
		stt.WithLanguage(cfg.STT.Language),
		stt.WithModel(cfg.STT.Model),
		stt.WithClientOptions(googleClient),
		stt.WithLogger(logger),
	)
	if err != nil {
		src.Close()
		return nil, nil, fmt.Errorf("speech-to-text: %w", err)
	}

	capturer := audioio.NewCapturer(src, cfg.CaptureConfig(), logger)
	l := assistant.NewMicListener(capturer, recognizer,
		assistant.WithRecordDir(cfg.Listen.RecordDir),
		assistant.WithMicLogger(logger),
	)
	cleanup := func() {
		recognizer.Close()
		if err := src.Close(); err != nil {
			logger.Warn("failed to close audio input", "error", err)
		}
	}
	return l, cleanup, nil
}

func newSpeaker(ctx context.Context, cfg *config.Config, googleClient option.ClientOption, logger *slog.Logger) (assistant.Speaker, error) {
	synth, err := tts.NewGoogle(ctx,
		tts.WithLanguage(cfg.TTS.Language),
		tts.WithGender(cfg.TTS.Gender),
		tts.WithVoice(cfg.TTS.Voice),
		tts.WithSpeakingRate(cfg.TTS.SpeakingRate),
		tts.WithClientOptions(googleClient),
		tts.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("text-to-speech: %w", err)
	}

	out, err := audio.NewOutputDir(cfg.Playback.OutputDir, tts.EncodingMP3.Extension())
	if err != nil {
		return nil, err
	}

	player, err := audio.New(cfg.Playback.Mode, cfg.PlayerCommand(), logger)
	if err != nil {
		return nil, fmt.Errorf("playback: %w", err)
	}

	return assistant.NewVoiceSpeaker(synth, out, player,
		assistant.WithKeepAudio(cfg.Playback.KeepAudio),
		assistant.WithSpeakerLogger(logger),
	), nil
}
