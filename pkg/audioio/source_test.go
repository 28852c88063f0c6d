package audioio

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Backend = BackendMock
	cfg.SampleRate = 16000
	cfg.BufferDuration = 20 * time.Millisecond
	return cfg
}

func TestMockSource_StartStop(t *testing.T) {
	src := NewMockSource(testConfig(), nil)
	defer src.Close()

	ctx := context.Background()

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	// Starting again should be a no-op
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Second Start failed: %v", err)
	}
	if err := src.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	// Stopping again should be a no-op
	if err := src.Stop(); err != nil {
		t.Fatalf("Second Stop failed: %v", err)
	}
}

func TestMockSource_Read(t *testing.T) {
	cfg := testConfig()
	src := NewMockSource(cfg, nil)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	chunk, err := src.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(chunk.Samples) != cfg.BufferSize()*cfg.Channels {
		t.Errorf("Expected %d samples, got %d", cfg.BufferSize()*cfg.Channels, len(chunk.Samples))
	}
	if chunk.SampleRate != cfg.SampleRate {
		t.Errorf("Expected sample rate %d, got %d", cfg.SampleRate, chunk.SampleRate)
	}
	if RMS(chunk.Samples) != 0 {
		t.Errorf("Expected silence by default, got RMS %f", RMS(chunk.Samples))
	}
}

func TestMockSource_SineWave(t *testing.T) {
	src := NewMockSource(testConfig(), nil, WithSineWave(440, 0.5))
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	chunk, err := src.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if rms := RMS(chunk.Samples); rms < 10000 {
		t.Errorf("Expected a loud sine wave, got RMS %f", rms)
	}
}

func TestMockSource_Close(t *testing.T) {
	src := NewMockSource(testConfig(), nil)

	ctx := context.Background()
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := src.Start(ctx); err != io.ErrClosedPipe {
		t.Errorf("Expected ErrClosedPipe after close, got: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Second Close failed: %v", err)
	}
}

func TestSource_ReadBeforeStart(t *testing.T) {
	src := NewMockSource(testConfig(), nil)
	defer src.Close()

	if _, err := src.Read(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF before Start, got %v", err)
	}
}

func TestScriptSource_Segments(t *testing.T) {
	cfg := testConfig()
	src := NewScriptSource(cfg, nil, Speech(100*time.Millisecond), Silence(50*time.Millisecond))
	src.EOFAfterScript = true
	defer src.Close()

	ctx := context.Background()
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	var loud, quiet int
	var total time.Duration
	for {
		chunk, err := src.Read(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		total += chunk.Duration()
		if RMS(chunk.Samples) > 300 {
			loud++
		} else {
			quiet++
		}
	}

	if loud != 5 || quiet != 3 {
		t.Errorf("Expected 5 loud and 3 quiet chunks, got %d and %d", loud, quiet)
	}
	if total != 150*time.Millisecond {
		t.Errorf("Expected 150ms of audio, got %v", total)
	}

	stats := src.Stats()
	if stats.ChunksRead != 8 {
		t.Errorf("Expected 8 chunks read, got %d", stats.ChunksRead)
	}
	if stats.Backend != "script" {
		t.Errorf("Expected backend 'script', got %q", stats.Backend)
	}
}

func TestScriptSource_SilenceAfterScript(t *testing.T) {
	src := NewScriptSource(testConfig(), nil)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		chunk, err := src.Read(ctx)
		if err != nil {
			t.Fatalf("Read %d failed: %v", i, err)
		}
		if RMS(chunk.Samples) != 0 {
			t.Errorf("Chunk %d: expected silence", i)
		}
	}
}

func TestAudioChunk_Bytes(t *testing.T) {
	chunk := AudioChunk{
		Samples:    []int16{0x0102, 0x0304, -1},
		SampleRate: 16000,
		Channels:   1,
	}

	bytes := chunk.Bytes()
	if len(bytes) != 6 {
		t.Fatalf("Expected 6 bytes, got %d", len(bytes))
	}
	// Little-endian encoding
	if bytes[0] != 0x02 || bytes[1] != 0x01 {
		t.Errorf("First sample not encoded correctly: %v", bytes[0:2])
	}
}

func TestAudioChunk_Duration(t *testing.T) {
	chunk := AudioChunk{
		Samples:    make([]int16, 882), // 20ms at 44.1kHz mono
		SampleRate: 44100,
		Channels:   1,
	}
	if d := chunk.Duration(); d != 20*time.Millisecond {
		t.Errorf("Expected 20ms, got %v", d)
	}

	var empty AudioChunk
	if d := empty.Duration(); d != 0 {
		t.Errorf("Expected 0 for empty chunk, got %v", d)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }, true},
		{"zero channels", func(c *Config) { c.Channels = 0 }, true},
		{"zero buffer", func(c *Config) { c.BufferDuration = 0 }, true},
		{"tiny buffer", func(c *Config) { c.BufferDuration = time.Microsecond }, true},
		{"wav without path", func(c *Config) { c.Backend = BackendWAV }, true},
		{"wav with path", func(c *Config) { c.Backend = BackendWAV; c.WAVPath = "in.wav" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewSource(t *testing.T) {
	src, err := NewSource(testConfig(), nil)
	if err != nil {
		t.Fatalf("NewSource failed: %v", err)
	}
	defer src.Close()

	if src.Name() != "mock" {
		t.Errorf("Expected mock backend, got %q", src.Name())
	}

	cfg := testConfig()
	cfg.Backend = "alsa"
	if _, err := NewSource(cfg, nil); err == nil {
		t.Error("Expected error for unsupported backend")
	}
}

func TestAvailableBackends(t *testing.T) {
	backends := AvailableBackends()
	if len(backends) < 2 || backends[0] != BackendMock || backends[1] != BackendWAV {
		t.Errorf("Expected mock and wav first, got %v", backends)
	}
}
