// Package store persists per-user credentials and stats as one JSON file
// per username.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Record is the durable per-user state. Passwords are stored as provided;
// hardening the credential scheme is out of scope for this server.
type Record struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Kills    int     `json:"kills"`
	Wins     int     `json:"wins"`
	PlayTime float64 `json:"play_time"`
}

// FileStore keeps one <username>.json per record under a directory. A single
// mutex serializes file access; contention is limited to login bursts and
// end-of-session rollups.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("store: directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Load reads a record by username. The second return is false when no such
// user exists.
func (s *FileStore) Load(username string) (Record, bool, error) {
	path, err := s.path(username)
	if err != nil {
		return Record{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("store: read %s: %w", username, err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, false, fmt.Errorf("store: decode %s: %w", username, err)
	}
	return record, true, nil
}

// Save writes a record, replacing any previous contents atomically via a
// temp file rename.
func (s *FileStore) Save(record Record) error {
	path, err := s.path(record.Username)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", record.Username, err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("store: write %s: %w", record.Username, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("store: rename %s: %w", record.Username, err)
	}
	return nil
}

// path validates the username and maps it to a file. Usernames are
// restricted to a filename-safe alphabet so a record can never escape the
// store directory.
func (s *FileStore) path(username string) (string, error) {
	if username == "" {
		return "", errors.New("store: username required")
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return "", fmt.Errorf("store: invalid username %q", username)
		}
	}
	if strings.HasPrefix(username, ".") {
		return "", fmt.Errorf("store: invalid username %q", username)
	}
	return filepath.Join(s.dir, username+".json"), nil
}
