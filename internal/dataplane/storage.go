package dataplane

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	dErrors "twinpass/pkg/domain-errors"
)

// PassportStore persists fetched passport documents keyed by process id and
// hands back the location a later retrieval can use.
type PassportStore interface {
	Save(ctx context.Context, processID string, payload json.RawMessage) (string, error)
	Load(ctx context.Context, processID string) (json.RawMessage, error)
}

// FileStore writes each passport to <root>/<processID>/passport.json.
type FileStore struct {
	root string
}

// NewFileStore creates the storage root if it does not exist yet.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create passport storage root: %w", err)
	}
	return &FileStore{root: root}, nil
}

// path derives the storage location for a process id. The id becomes a
// directory name, so anything that could traverse out of the root is
// rejected before it ever reaches the filesystem.
func (s *FileStore) path(processID string) (string, error) {
	if processID == "" || strings.ContainsAny(processID, `/\`) || strings.Contains(processID, "..") {
		return "", dErrors.New(dErrors.CodeBadRequest, "the process id is not a valid storage key")
	}
	return filepath.Join(s.root, processID, "passport.json"), nil
}

func (s *FileStore) Save(ctx context.Context, processID string, payload json.RawMessage) (string, error) {
	location, err := s.path(processID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(location), 0o750); err != nil {
		return "", fmt.Errorf("create passport directory: %w", err)
	}
	if err := os.WriteFile(location, payload, 0o640); err != nil {
		return "", fmt.Errorf("write passport: %w", err)
	}
	return location, nil
}

func (s *FileStore) Load(ctx context.Context, processID string) (json.RawMessage, error) {
	location, err := s.path(processID)
	if err != nil {
		return nil, err
	}
	payload, err := os.ReadFile(location)
	if os.IsNotExist(err) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no passport stored for this process")
	}
	if err != nil {
		return nil, fmt.Errorf("read passport: %w", err)
	}
	return payload, nil
}

// InMemoryStore keeps passports in a map. Used in tests and when no storage
// directory is configured.
type InMemoryStore struct {
	mu        sync.RWMutex
	passports map[string]json.RawMessage
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{passports: make(map[string]json.RawMessage)}
}

func (s *InMemoryStore) Save(ctx context.Context, processID string, payload json.RawMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passports[processID] = append(json.RawMessage(nil), payload...)
	return "memory://" + processID, nil
}

func (s *InMemoryStore) Load(ctx context.Context, processID string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payload, ok := s.passports[processID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "no passport stored for this process")
	}
	return payload, nil
}
