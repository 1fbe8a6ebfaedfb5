package progress

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Store persists sessions between runs.
type Store interface {
	Load() (map[string]*Session, error)
	Save(sessions map[string]*Session) error
}

// FileStore keeps all sessions in one YAML file.
type FileStore struct {
	Path string
}

// Load reads the file. A missing file holds no sessions and empty
// entries are dropped.
func (f FileStore) Load() (map[string]*Session, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]*Session{}, nil
	}
	if err != nil {
		return nil, err
	}
	sessions := map[string]*Session{}
	if err := yaml.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", f.Path, err)
	}
	for id, s := range sessions {
		if s == nil {
			delete(sessions, id)
			continue
		}
		if s.Progress == nil {
			s.Progress = map[string]*LessonProgress{}
		}
		s.UserID = id
	}
	return sessions, nil
}

// Save replaces the file atomically.
func (f FileStore) Save(sessions map[string]*Session) error {
	data, err := yaml.Marshal(sessions)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}
