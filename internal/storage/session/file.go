package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/z-saga/backend/internal/model/story"
)

type fileFormat int

const (
	formatJSON fileFormat = iota
	formatYAML
)

// FileStore keeps the mapping in one JSON or YAML document, chosen by extension.
type FileStore struct {
	mu     sync.Mutex
	path   string
	format fileFormat
}

// NewFileStore creates the parent directory and an empty document when missing.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, format: formatJSON}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		s.format = formatYAML
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data dir: %v", story.ErrStorage, err)
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := s.SaveAll(context.Background(), map[string]story.Session{}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", story.ErrStorage, path, err)
	}
	return s, nil
}

// Path returns the document location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) LoadAll(context.Context) (map[string]story.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]story.Session{}, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", story.ErrStorage, s.path, err)
	}

	sessions := map[string]story.Session{}
	if len(bytes.TrimSpace(data)) == 0 {
		return sessions, nil
	}

	switch s.format {
	case formatYAML:
		err = yaml.Unmarshal(data, &sessions)
	default:
		err = json.Unmarshal(data, &sessions)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", story.ErrStorage, s.path, err)
	}
	if sessions == nil {
		sessions = map[string]story.Session{}
	}
	return sessions, nil
}

func (s *FileStore) SaveAll(_ context.Context, sessions map[string]story.Session) error {
	data, err := s.encode(sessions)
	if err != nil {
		return fmt.Errorf("%w: encode sessions: %v", story.ErrStorage, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", story.ErrStorage, s.path, err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) encode(sessions map[string]story.Session) ([]byte, error) {
	if sessions == nil {
		sessions = map[string]story.Session{}
	}
	if s.format == formatYAML {
		return yaml.Marshal(sessions)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sessions); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeFileAtomic replaces path through a temp file in the same directory.
func writeFileAtomic(path string, data []byte, mode fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp_sessions_*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
