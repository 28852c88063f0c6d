//go:build nospeaker

package audio

import (
	"errors"
	"log/slog"
)

// NewSpeakerPlayer reports that speaker support was compiled out.
func NewSpeakerPlayer(logger *slog.Logger) (Player, error) {
	return nil, errors.New("audio: speaker support not compiled in (built with -tags nospeaker)")
}
