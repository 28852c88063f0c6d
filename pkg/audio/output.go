package audio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// OutputDir hands out unique clip paths in one directory.
type OutputDir struct {
	dir    string
	prefix string
	ext    string
}

// NewOutputDir creates the directory if needed. ext includes the dot, e.g. ".mp3".
func NewOutputDir(dir, ext string) (*OutputDir, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &OutputDir{dir: dir, prefix: "reply-", ext: ext}, nil
}

// Dir returns the directory path.
func (o *OutputDir) Dir() string {
	return o.dir
}

// NewClipPath returns a fresh path of the form <dir>/reply-<uuid><ext>.
func (o *OutputDir) NewClipPath() string {
	return filepath.Join(o.dir, o.prefix+uuid.NewString()+o.ext)
}

// Write stores data under a fresh clip path and returns the path.
// The file only appears once it is complete.
func (o *OutputDir) Write(data []byte) (string, error) {
	path := o.NewClipPath()

	tmp, err := os.CreateTemp(o.dir, ".clip-*")
	if err != nil {
		return "", fmt.Errorf("create temp clip: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write clip: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close clip: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("chmod clip: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("rename clip: %w", err)
	}
	return path, nil
}
