package memory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// DefaultPath is where the history lives relative to the working directory.
const DefaultPath = "memories/conversation_memory.json"

// ErrCorrupt is returned by LoadStrict when the file is not a JSON array of turns.
var ErrCorrupt = errors.New("memory: corrupt conversation file")

// Store reads and writes the conversation file.
// There is no locking: two processes sharing a file overwrite each other.
type Store struct {
	path   string
	logger *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used to report a discarded corrupt file.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a store for the file at path.
// The file and its directory are created on first Save.
func NewStore(path string, opts ...StoreOption) *Store {
	if path == "" {
		path = DefaultPath
	}
	s := &Store{
		path:   path,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "memory.store")
	return s
}

// Path returns the file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the history. A missing, unreadable, or malformed file yields an
// empty history; the problem is only logged.
func (s *Store) Load() []Turn {
	turns, err := s.LoadStrict()
	if err != nil {
		s.logger.Warn("discarding conversation file", "path", s.path, "error", err)
		return []Turn{}
	}
	return turns
}

// LoadStrict reads the history and reports why it could not be parsed.
// A missing file is not an error.
func (s *Store) LoadStrict() ([]Turn, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Turn{}, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrCorrupt)
	}

	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if turns == nil {
		turns = []Turn{}
	}
	return turns, nil
}

// Save overwrites the file with turns, pretty-printed with 4-space indent.
// The write goes through a temporary file in the same directory and a rename.
func (s *Store) Save(turns []Turn) error {
	if turns == nil {
		turns = []Turn{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(turns); err != nil {
		return fmt.Errorf("marshal turns: %w", err)
	}
	data := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))

	dir := filepath.Dir(s.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename file: %w", err)
	}

	return nil
}
