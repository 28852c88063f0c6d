package audio

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// silentMP3 builds an MPEG-1 Layer III stream of silent 128kbps 44.1kHz
// stereo frames. Each frame holds 1152 samples.
func silentMP3(frames int) []byte {
	const frameSize = 144 * 128000 / 44100 // 417 bytes, no padding
	data := make([]byte, 0, frames*frameSize)
	for i := 0; i < frames; i++ {
		frame := make([]byte, frameSize)
		frame[0], frame[1], frame[2], frame[3] = 0xFF, 0xFB, 0x90, 0x04
		data = append(data, frame...)
	}
	return data
}

func TestMP3Duration(t *testing.T) {
	d, err := MP3Duration(silentMP3(100))
	if err != nil {
		t.Fatalf("MP3Duration failed: %v", err)
	}
	want := time.Duration(100*1152) * time.Second / 44100
	if diff := d - want; diff < -30*time.Millisecond || diff > 30*time.Millisecond {
		t.Errorf("Expected ~%v, got %v", want, d)
	}
}

func TestMP3FileDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp3")
	if err := os.WriteFile(path, silentMP3(50), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := MP3FileDuration(path)
	if err != nil {
		t.Fatalf("MP3FileDuration failed: %v", err)
	}
	if d <= 0 {
		t.Errorf("Expected positive duration, got %v", d)
	}

	if _, err := MP3FileDuration(filepath.Join(t.TempDir(), "missing.mp3")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

func TestMP3Duration_Invalid(t *testing.T) {
	if _, err := MP3Duration([]byte("definitely not an mp3")); err == nil {
		t.Error("Expected error for invalid data")
	}
	if _, err := MP3Duration(nil); err == nil {
		t.Error("Expected error for empty data")
	}
}

func TestOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "clips")
	out, err := NewOutputDir(dir, ".mp3")
	if err != nil {
		t.Fatalf("NewOutputDir failed: %v", err)
	}

	a, b := out.NewClipPath(), out.NewClipPath()
	if a == b {
		t.Error("Expected unique clip paths")
	}
	if filepath.Dir(a) != dir || !strings.HasPrefix(filepath.Base(a), "reply-") || filepath.Ext(a) != ".mp3" {
		t.Errorf("Unexpected clip path %q", a)
	}

	path, err := out.Write([]byte("audio"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "audio" {
		t.Errorf("Expected clip contents to round-trip, got %q (%v)", data, err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("Expected only the clip in the directory, got %d entries", len(entries))
	}
}

func TestOpenCommand(t *testing.T) {
	tests := []struct {
		goos string
		want []string
	}{
		{"linux", []string{"xdg-open", "a.mp3"}},
		{"darwin", []string{"open", "a.mp3"}},
		{"windows", []string{"cmd", "/c", "start", "", "a.mp3"}},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			got := OpenCommand(tt.goos, "a.mp3")
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("OpenCommand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpenPlayer_WaitsForDuration(t *testing.T) {
	p := NewOpenPlayer(nil)
	var started []string
	p.start = func(args []string) error {
		started = args
		return nil
	}
	begin := time.Now()
	if err := p.Play(context.Background(), "clip.mp3", 50*time.Millisecond); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if elapsed := time.Since(begin); elapsed < 50*time.Millisecond {
		t.Errorf("Expected Play to block for the clip duration, returned after %v", elapsed)
	}
	if len(started) == 0 || started[len(started)-1] != "clip.mp3" {
		t.Errorf("Expected handler to receive the clip path, got %q", started)
	}
}

func TestOpenPlayer_Cancelled(t *testing.T) {
	p := NewOpenPlayer(nil)
	p.start = func(args []string) error { return nil }

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Play(ctx, "clip.mp3", time.Minute)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected DeadlineExceeded, got %v", err)
	}
}

func TestOpenPlayer_UnknownDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp3")
	if err := os.WriteFile(path, []byte("not an mp3"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := NewOpenPlayer(nil)
	launched := false
	p.start = func(args []string) error {
		launched = true
		return nil
	}

	if err := p.Play(context.Background(), path, 0); !errors.Is(err, ErrDetached) {
		t.Errorf("Expected ErrDetached, got %v", err)
	}
	if !launched {
		t.Error("Expected handler to be launched")
	}
}

func TestOpenPlayer_MeasuresDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp3")
	if err := os.WriteFile(path, silentMP3(10), 0o644); err != nil {
		t.Fatal(err)
	}
	p := NewOpenPlayer(nil)
	p.start = func(args []string) error { return nil }

	if err := p.Play(context.Background(), path, 0); err != nil {
		t.Errorf("Expected measured clip to play to completion, got %v", err)
	}
}

func TestOpenPlayer_StartFailure(t *testing.T) {
	p := NewOpenPlayer(nil)
	p.start = func(args []string) error { return exec.ErrNotFound }

	if err := p.Play(context.Background(), "clip.mp3", time.Second); !errors.Is(err, exec.ErrNotFound) {
		t.Errorf("Expected exec.ErrNotFound, got %v", err)
	}
}

func TestCommandPlayer(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	marker := filepath.Join(t.TempDir(), "played")
	// sh -c 'script' $0: the clip path arrives as $0.
	p, err := NewCommandPlayer([]string{"sh", "-c", `echo "$0" > ` + marker}, nil)
	if err != nil {
		t.Fatalf("NewCommandPlayer failed: %v", err)
	}

	if err := p.Play(context.Background(), "clip.mp3", 0); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	data, err := os.ReadFile(marker)
	if err != nil || strings.TrimSpace(string(data)) != "clip.mp3" {
		t.Errorf("Expected command to receive clip path, got %q (%v)", data, err)
	}

	failing, _ := NewCommandPlayer([]string{"sh", "-c", "echo boom >&2; exit 3"}, nil)
	err = failing.Play(context.Background(), "clip.mp3", 0)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("Expected command failure with output, got %v", err)
	}
}

func TestNew(t *testing.T) {
	if p, err := New(ModeOpen, nil, nil); err != nil || p == nil {
		t.Errorf("Expected open player, got %v", err)
	}
	if _, err := New(ModeCommand, nil, nil); !errors.Is(err, ErrNoCommand) {
		t.Errorf("Expected ErrNoCommand, got %v", err)
	}
	if _, err := New("bluetooth", nil, nil); err == nil {
		t.Error("Expected error for unknown mode")
	}
}
