package audioio

import (
	"fmt"
	"log/slog"
)

// WAVSource replays a WAV file as microphone input. The file is decoded
// once; each chunk is handed out as soon as it is read, and the source
// reports io.EOF after the last sample. It does not rewind.
type WAVSource struct {
	*genSource

	samples []int16
	offset  int
}

// NewWAVSource decodes cfg.WAVPath and returns a mono source at cfg.SampleRate.
func NewWAVSource(cfg Config, logger *slog.Logger) (*WAVSource, error) {
	samples, err := ReadWAV(cfg.WAVPath, cfg.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("open wav source: %w", err)
	}
	cfg.Channels = 1

	w := &WAVSource{samples: samples}
	w.genSource = newGenSource(cfg, logger, string(BackendWAV), false, w.nextChunk)
	w.logger.Info("wav source loaded",
		"path", cfg.WAVPath,
		"duration", samplesDuration(len(samples), cfg.SampleRate, 1),
	)
	return w, nil
}

func (w *WAVSource) nextChunk() (AudioChunk, bool) {
	if w.offset >= len(w.samples) {
		return AudioChunk{}, false
	}
	end := min(w.offset+w.cfg.BufferSize(), len(w.samples))
	chunk := AudioChunk{
		Samples:    w.samples[w.offset:end],
		SampleRate: w.cfg.SampleRate,
		Channels:   1,
	}
	w.offset = end
	return chunk, true
}
