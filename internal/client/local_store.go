package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LocalMemory is a memory kept on the client while the server is
// unreachable. Data holds the file as a base64 data URL.
type LocalMemory struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	OriginalName string    `json:"originalName"`
	Type         string    `json:"type"`
	MimeType     string    `json:"mimeType"`
	Data         string    `json:"data"`
	UploadDate   time.Time `json:"uploadDate"`
	Size         int64     `json:"size"`
	IsLocal      bool      `json:"isLocal"`
}

// LocalStore persists LocalMemory values as a JSON array in one file.
type LocalStore struct {
	path string
	mu   sync.Mutex
}

func NewLocalStore(path string) *LocalStore {
	return &LocalStore{path: path}
}

// Load returns the stored memories. A missing file is an empty store.
func (s *LocalStore) Load() ([]LocalMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *LocalStore) Add(items ...LocalMemory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load()
	if err != nil {
		return err
	}
	return s.save(append(existing, items...))
}

func (s *LocalStore) load() ([]LocalMemory, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []LocalMemory{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading local store: %w", err)
	}
	var items []LocalMemory
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decoding local store: %w", err)
	}
	return items, nil
}

func (s *LocalStore) save(items []LocalMemory) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".memories-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
