// Package config loads clawd settings from defaults, an optional config
// file, a .env file, the environment and command-line flags, in increasing
// order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/teslashibe/go-clawd/internal/log"
	"github.com/teslashibe/go-clawd/pkg/assistant"
	"github.com/teslashibe/go-clawd/pkg/audio"
	"github.com/teslashibe/go-clawd/pkg/audioio"
	"github.com/teslashibe/go-clawd/pkg/credentials"
	"github.com/teslashibe/go-clawd/pkg/inference"
	"github.com/teslashibe/go-clawd/pkg/tts"
)

// InputMode selects where utterances come from.
type InputMode string

const (
	InputMic   InputMode = "mic"
	InputStdin InputMode = "stdin"
	InputWAV   InputMode = "wav"
)

// Config is the complete clawd configuration.
type Config struct {
	ProjectID string `mapstructure:"project_id"`
	Model     string `mapstructure:"model"`
	Location  string `mapstructure:"location"`
	Endpoint  string `mapstructure:"endpoint"`

	Memory      MemoryConfig      `mapstructure:"memory"`
	Chat        ChatConfig        `mapstructure:"chat"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Input       InputConfig       `mapstructure:"input"`
	Audio       AudioConfig       `mapstructure:"audio"`
	Listen      ListenConfig      `mapstructure:"listen"`
	STT         STTConfig         `mapstructure:"stt"`
	TTS         TTSConfig         `mapstructure:"tts"`
	Playback    PlaybackConfig    `mapstructure:"playback"`
	Assistant   AssistantConfig   `mapstructure:"assistant"`
	Dashboard   DashboardConfig   `mapstructure:"dashboard"`
	Log         LogConfig         `mapstructure:"log"`
}

type MemoryConfig struct {
	Path  string `mapstructure:"path"`
	Limit int    `mapstructure:"limit"`
}

type ChatConfig struct {
	AnthropicVersion string        `mapstructure:"anthropic_version"`
	MaxTokens        int           `mapstructure:"max_tokens"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
}

type CredentialsConfig struct {
	Mode     credentials.Mode `mapstructure:"mode"`
	Command  string           `mapstructure:"command"`
	Lifetime time.Duration    `mapstructure:"lifetime"`
	Token    string           `mapstructure:"token"`
}

type InputConfig struct {
	Mode    InputMode `mapstructure:"mode"`
	WAVPath string    `mapstructure:"wav_path"`
}

type AudioConfig struct {
	SampleRate     int           `mapstructure:"sample_rate"`
	Device         string        `mapstructure:"device"`
	BufferDuration time.Duration `mapstructure:"buffer_duration"`
}

type ListenConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	Pause           time.Duration `mapstructure:"pause"`
	PhraseLimit     time.Duration `mapstructure:"phrase_limit"`
	EnergyThreshold float64       `mapstructure:"energy_threshold"`
	PrefixPadding   time.Duration `mapstructure:"prefix_padding"`
	RecordDir       string        `mapstructure:"record_dir"`
}

type STTConfig struct {
	Language string `mapstructure:"language"`
	Model    string `mapstructure:"model"`
}

type TTSConfig struct {
	Language     string     `mapstructure:"language"`
	Gender       tts.Gender `mapstructure:"gender"`
	Voice        string     `mapstructure:"voice"`
	SpeakingRate float64    `mapstructure:"speaking_rate"`
}

type PlaybackConfig struct {
	Mode      audio.Mode `mapstructure:"mode"`
	Command   string     `mapstructure:"command"`
	OutputDir string     `mapstructure:"output_dir"`
	KeepAudio bool       `mapstructure:"keep_audio"`
}

type AssistantConfig struct {
	FailurePolicy assistant.FailurePolicy `mapstructure:"failure_policy"`
	MaxTurns      int                     `mapstructure:"max_turns"`
}

type DashboardConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string     `mapstructure:"level"`
	Format log.Format `mapstructure:"format"`
}

// Error reports an invalid configuration value.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Validate checks that the configuration can start the loop.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		for _, f := range []struct{ name, val, env string }{
			{"project_id", c.ProjectID, "PROJECT_ID"},
			{"location", c.Location, "LOCATION"},
			{"model", c.Model, "MODEL"},
		} {
			if f.val == "" {
				return &Error{Field: f.name, Message: f.env + " is required when ENDPOINT is not set"}
			}
		}
	}

	if c.Memory.Path == "" {
		return &Error{Field: "memory.path", Message: "must not be empty"}
	}
	if c.Memory.Limit < 0 {
		return &Error{Field: "memory.limit", Message: "must not be negative"}
	}
	if c.Chat.MaxTokens <= 0 {
		return &Error{Field: "chat.max_tokens", Message: "must be positive"}
	}
	if c.Chat.MaxRetries < 0 {
		return &Error{Field: "chat.max_retries", Message: "must not be negative"}
	}

	switch c.Credentials.Mode {
	case credentials.ModeGcloud:
		if strings.TrimSpace(c.Credentials.Command) == "" {
			return &Error{Field: "credentials.command", Message: "required in gcloud mode"}
		}
	case credentials.ModeADC:
	case credentials.ModeStatic:
		if c.Credentials.Token == "" {
			return &Error{Field: "credentials.token", Message: "required in static mode"}
		}
	default:
		return &Error{Field: "credentials.mode", Message: fmt.Sprintf("unknown mode %q", c.Credentials.Mode)}
	}

	switch c.Input.Mode {
	case InputMic, InputStdin:
	case InputWAV:
		if c.Input.WAVPath == "" {
			return &Error{Field: "input.wav_path", Message: "required in wav mode"}
		}
	default:
		return &Error{Field: "input.mode", Message: fmt.Sprintf("unknown mode %q", c.Input.Mode)}
	}

	if c.Input.Mode != InputStdin {
		ac := c.AudioSource()
		if err := ac.Validate(); err != nil {
			return &Error{Field: "audio", Message: err.Error()}
		}
		cc := c.CaptureConfig()
		if err := cc.Validate(); err != nil {
			return &Error{Field: "listen", Message: err.Error()}
		}
	}

	if !c.TTS.Gender.Valid() {
		return &Error{Field: "tts.gender", Message: fmt.Sprintf("unknown gender %q", c.TTS.Gender)}
	}
	if c.TTS.SpeakingRate != 0 && (c.TTS.SpeakingRate < 0.25 || c.TTS.SpeakingRate > 4) {
		return &Error{Field: "tts.speaking_rate", Message: "must be between 0.25 and 4.0"}
	}

	switch c.Playback.Mode {
	case audio.ModeOpen, audio.ModeSpeaker:
	case audio.ModeCommand:
		if strings.TrimSpace(c.Playback.Command) == "" {
			return &Error{Field: "playback.command", Message: "required in command mode"}
		}
	default:
		return &Error{Field: "playback.mode", Message: fmt.Sprintf("unknown mode %q", c.Playback.Mode)}
	}

	if !c.Assistant.FailurePolicy.Valid() {
		return &Error{Field: "assistant.failure_policy", Message: fmt.Sprintf("unknown policy %q", c.Assistant.FailurePolicy)}
	}
	if c.Assistant.MaxTurns < 0 {
		return &Error{Field: "assistant.max_turns", Message: "must not be negative"}
	}

	if c.Log.Format != log.FormatText && c.Log.Format != log.FormatJSON {
		return &Error{Field: "log.format", Message: fmt.Sprintf("unknown format %q", c.Log.Format)}
	}
	return nil
}

// ChatEndpoint returns ENDPOINT, or the rawPredict URL derived from the
// project, location and model.
func (c *Config) ChatEndpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return inference.EndpointURL(c.ProjectID, c.Location, c.Model)
}

// AudioSource returns the capture source configuration.
func (c *Config) AudioSource() audioio.Config {
	ac := audioio.DefaultConfig()
	ac.SampleRate = c.Audio.SampleRate
	ac.Device = c.Audio.Device
	if c.Audio.BufferDuration > 0 {
		ac.BufferDuration = c.Audio.BufferDuration
	}
	if c.Input.Mode == InputWAV {
		ac.Backend = audioio.BackendWAV
		ac.WAVPath = c.Input.WAVPath
	}
	return ac
}

// CaptureConfig returns the utterance endpointing configuration.
func (c *Config) CaptureConfig() audioio.CaptureConfig {
	return audioio.CaptureConfig{
		EnergyThreshold: c.Listen.EnergyThreshold,
		Timeout:         c.Listen.Timeout,
		PauseThreshold:  c.Listen.Pause,
		PhraseLimit:     c.Listen.PhraseLimit,
		PrefixPadding:   c.Listen.PrefixPadding,
	}
}

// CredentialsConfig returns the token source configuration.
func (c *Config) CredentialsConfig() credentials.Config {
	cc := credentials.DefaultConfig()
	cc.Mode = c.Credentials.Mode
	cc.Command = c.Credentials.Command
	if c.Credentials.Lifetime > 0 {
		cc.Lifetime = c.Credentials.Lifetime
	}
	cc.Token = c.Credentials.Token
	return cc
}

// PlayerCommand splits playback.command into program and arguments.
func (c *Config) PlayerCommand() []string {
	return strings.Fields(c.Playback.Command)
}
