//go:build noportaudio

package audioio

import (
	"errors"
	"log/slog"
)

const portAudioAvailable = false

func newPortAudioSource(cfg Config, logger *slog.Logger) (Source, error) {
	return nil, errors.New("portaudio support not compiled in (built with -tags noportaudio)")
}
