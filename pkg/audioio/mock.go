package audioio

import (
	"log/slog"
	"math"
	"time"
)

// MockSource is a mock audio source for testing.
// It generates synthetic audio (silence or sine wave) paced like a real device.
type MockSource struct {
	*genSource

	phase     float64
	frequency float64 // Hz, 0 = silence
	amplitude float64 // 0.0 to 1.0
}

// MockSourceOption configures a MockSource.
type MockSourceOption func(*MockSource)

// WithSineWave configures the mock to generate a sine wave.
func WithSineWave(frequency, amplitude float64) MockSourceOption {
	return func(m *MockSource) {
		m.frequency = frequency
		m.amplitude = amplitude
	}
}

// NewMockSource creates a new mock audio source.
func NewMockSource(cfg Config, logger *slog.Logger, opts ...MockSourceOption) *MockSource {
	m := &MockSource{
		frequency: 0, // Silence by default
		amplitude: 0.5,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.genSource = newGenSource(cfg, logger, "mock", true, func() (AudioChunk, bool) {
		return m.generateChunk(), true
	})
	return m
}

func (m *MockSource) generateChunk() AudioChunk {
	bufferSize := m.cfg.BufferSize()
	samples := make([]int16, bufferSize*m.cfg.Channels)
	m.phase = fillTone(samples, m.cfg.Channels, m.cfg.SampleRate, m.frequency, m.amplitude, m.phase)

	return AudioChunk{
		Samples:    samples,
		SampleRate: m.cfg.SampleRate,
		Channels:   m.cfg.Channels,
	}
}

// fillTone writes a sine wave into interleaved samples and returns the next phase.
// A zero frequency or amplitude leaves the samples silent.
func fillTone(samples []int16, channels, sampleRate int, frequency, amplitude, phase float64) float64 {
	if frequency <= 0 || amplitude <= 0 {
		return phase
	}
	frames := len(samples) / channels
	for i := 0; i < frames; i++ {
		v := int16(amplitude * 32767 * math.Sin(2*math.Pi*frequency*phase/float64(sampleRate)))
		for ch := 0; ch < channels; ch++ {
			samples[i*channels+ch] = v
		}
		phase++
		if phase >= float64(sampleRate) {
			phase = 0
		}
	}
	return phase
}

// Segment is one stretch of scripted audio.
type Segment struct {
	Duration  time.Duration
	Frequency float64 // Hz, 0 = silence
	Amplitude float64 // 0.0 to 1.0
}

// Speech returns a loud tone segment that crosses the default energy threshold.
func Speech(d time.Duration) Segment {
	return Segment{Duration: d, Frequency: 440, Amplitude: 0.5}
}

// Silence returns a silent segment.
func Silence(d time.Duration) Segment {
	return Segment{Duration: d}
}

// ScriptSource plays a fixed sequence of segments without real-time pacing.
// After the script it emits silence, or reports io.EOF when EOFAfterScript is set.
type ScriptSource struct {
	*genSource

	segments []Segment
	seg      int
	left     int // samples per channel left in the current segment
	phase    float64

	// EOFAfterScript makes the source exhausted once the script has played.
	EOFAfterScript bool
}

// NewScriptSource creates a source that plays segments in order.
func NewScriptSource(cfg Config, logger *slog.Logger, segments ...Segment) *ScriptSource {
	s := &ScriptSource{segments: segments, seg: -1}
	s.genSource = newGenSource(cfg, logger, "script", false, s.nextChunk)
	return s
}

func (s *ScriptSource) nextChunk() (AudioChunk, bool) {
	for s.left == 0 {
		s.seg++
		if s.seg >= len(s.segments) {
			if s.EOFAfterScript {
				return AudioChunk{}, false
			}
			s.left = s.cfg.BufferSize()
			break
		}
		s.left = int(s.segments[s.seg].Duration.Seconds() * float64(s.cfg.SampleRate))
	}

	frames := min(s.cfg.BufferSize(), s.left)
	samples := make([]int16, frames*s.cfg.Channels)
	if s.seg < len(s.segments) {
		cur := s.segments[s.seg]
		s.phase = fillTone(samples, s.cfg.Channels, s.cfg.SampleRate, cur.Frequency, cur.Amplitude, s.phase)
		s.left -= frames
	} else {
		s.left = 0
	}

	return AudioChunk{
		Samples:    samples,
		SampleRate: s.cfg.SampleRate,
		Channels:   s.cfg.Channels,
	}, true
}
