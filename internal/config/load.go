package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable except the four Vertex
// settings, which keep their bare names.
const EnvPrefix = "CLAWD"

type setting struct {
	key   string
	def   any
	usage string
}

// settings lists every key with its default. Flags are derived from keys:
// "memory.limit" becomes --memory-limit.
var settings = []setting{
	{"project_id", "", "Google Cloud project ID (env PROJECT_ID)"},
	{"model", "", "Anthropic model on Vertex AI (env MODEL)"},
	{"location", "", "Vertex AI location, e.g. us-east5 (env LOCATION)"},
	{"endpoint", "", "full rawPredict URL; derived from project, location and model when empty (env ENDPOINT)"},

	{"memory.path", "memories/conversation_memory.json", "conversation memory file"},
	{"memory.limit", 5, "number of turns kept in memory (0 keeps all)"},

	{"chat.anthropic_version", "vertex-2023-10-16", "anthropic_version sent with each request"},
	{"chat.max_tokens", 1256, "maximum reply tokens"},
	{"chat.timeout", 60 * time.Second, "chat request timeout"},
	{"chat.max_retries", 0, "retries on 429 and 5xx responses"},

	{"credentials.mode", "gcloud", "token source: gcloud, adc or static"},
	{"credentials.command", "gcloud auth print-access-token", "credential helper command"},
	{"credentials.lifetime", 50 * time.Minute, "how long a helper token is reused"},
	{"credentials.token", "", "access token for static mode (env CLAWD_ACCESS_TOKEN)"},

	{"input.mode", "mic", "utterance source: mic, stdin or wav"},
	{"input.wav_path", "", "WAV file replayed in wav mode"},

	{"audio.sample_rate", 44100, "capture sample rate in Hz"},
	{"audio.device", "", "input device name (empty for the system default)"},
	{"audio.buffer_duration", 20 * time.Millisecond, "capture buffer length"},

	{"listen.timeout", 10 * time.Second, "longest wait for speech to start (0 waits forever)"},
	{"listen.pause", 3 * time.Second, "trailing silence that ends an utterance"},
	{"listen.phrase_limit", time.Duration(0), "longest utterance (0 for no limit)"},
	{"listen.energy_threshold", 300.0, "RMS level that counts as speech"},
	{"listen.prefix_padding", 500 * time.Millisecond, "silence kept around each utterance"},
	{"listen.record_dir", "", "directory to archive utterances as WAV (empty disables)"},

	{"stt.language", "en-US", "recognition language"},
	{"stt.model", "", "recognition model (empty for the API default)"},

	{"tts.language", "en-US", "synthesis language"},
	{"tts.gender", "NEUTRAL", "voice gender: NEUTRAL, FEMALE or MALE"},
	{"tts.voice", "", "named voice (empty lets the API choose)"},
	{"tts.speaking_rate", 1.0, "speaking rate, 0.25 to 4.0"},

	{"playback.mode", "open", "player: open, command or speaker"},
	{"playback.command", "", "player command line for command mode, e.g. \"mpg123 -q\""},
	{"playback.output_dir", ".", "directory for reply clips"},
	{"playback.keep_audio", false, "keep reply clips after playback"},

	{"assistant.failure_policy", "speak", "on generation failure: speak the error sentinel or stay silent"},
	{"assistant.max_turns", 0, "stop after this many turns (0 runs until interrupted)"},

	{"dashboard.addr", "", "dashboard listen address, e.g. :8080 (empty disables)"},

	{"log.level", "info", "log level: debug, info, warn or error"},
	{"log.format", "text", "log format: text or json"},
}

// bareEnv maps keys to extra environment variable names.
var bareEnv = map[string][]string{
	"project_id":        {"PROJECT_ID"},
	"model":             {"MODEL"},
	"location":          {"LOCATION"},
	"endpoint":          {"ENDPOINT"},
	"credentials.token": {"CLAWD_ACCESS_TOKEN"},
}

func flagName(key string) string {
	return strings.NewReplacer(".", "-", "_", "-").Replace(key)
}

// NewFlagSet returns the command-line flags for every setting plus
// --config and --env-file.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false
	fs.String("config", "", "config file (yaml, toml or json)")
	fs.String("env-file", ".env", "dotenv file loaded before reading the environment")

	for _, s := range settings {
		name := flagName(s.key)
		switch def := s.def.(type) {
		case string:
			fs.String(name, def, s.usage)
		case int:
			fs.Int(name, def, s.usage)
		case float64:
			fs.Float64(name, def, s.usage)
		case bool:
			fs.Bool(name, def, s.usage)
		case time.Duration:
			fs.Duration(name, def, s.usage)
		default:
			panic(fmt.Sprintf("config: unsupported default type %T for %s", def, s.key))
		}
	}
	return fs
}

// Load parses args and builds the configuration. pflag.ErrHelp is returned
// unchanged when --help is given.
func Load(args []string) (*Config, error) {
	fs := NewFlagSet("clawd")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return LoadFlags(fs)
}

// LoadFlags builds the configuration from a parsed flag set.
func LoadFlags(fs *pflag.FlagSet) (*Config, error) {
	envFile, _ := fs.GetString("env-file")
	if err := loadEnvFile(envFile, fs.Changed("env-file")); err != nil {
		return nil, err
	}

	v := viper.New()
	for _, s := range settings {
		v.SetDefault(s.key, s.def)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range bareEnv {
		envPrefixed := EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
		if err := v.BindEnv(append([]string{key, envPrefixed}, names...)...); err != nil {
			return nil, fmt.Errorf("config: bind env %s: %w", key, err)
		}
	}

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	for _, s := range settings {
		if err := v.BindPFlag(s.key, fs.Lookup(flagName(s.key))); err != nil {
			return nil, fmt.Errorf("config: bind flag %s: %w", s.key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, nil
}

// loadEnvFile loads path into the environment without overriding variables
// that are already set. A missing default file is fine.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("config: env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: env file %s: %w", path, err)
	}
	return nil
}
