package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// CredentialStorage persists the session credential across application runs.
type CredentialStorage interface {
	// Load returns the stored credential, or "" when none exists.
	Load() (string, error)
	// Save durably stores the credential.
	Save(token string) error
	// Clear removes the stored credential. Clearing an empty store is not an
	// error.
	Clear() error
}

// FileStorage stores the credential in a file scoped to the local profile.
type FileStorage struct {
	path string
}

// NewFileStorage creates file-backed credential storage at path.
func NewFileStorage(path string) (*FileStorage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("session: storage path is required")
	}
	return &FileStorage{path: path}, nil
}

func (s *FileStorage) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("session: read credential: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *FileStorage) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("session: create credential dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("session: write credential: %w", err)
	}
	return nil
}

func (s *FileStorage) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("session: remove credential: %w", err)
	}
	return nil
}

// MemoryStorage keeps the credential in memory. Used in tests.
type MemoryStorage struct {
	mu    sync.Mutex
	token string
}

func (s *MemoryStorage) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *MemoryStorage) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryStorage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
