// Package storage provides the durable per-user flag store backing the
// likes watermark and the chat safety consent flag. Keys are namespaced by
// user id so flags survive restarts and never leak across accounts.
package storage

import (
	"context"
	"fmt"
	"sync"
)

// Durable flag keys. The user id is appended at storage time.
const (
	KeyLastSeenLikesCount = "lastSeenLikesCount"
	KeySafetyConsent      = "safety_consent"
)

// ErrNotFound is returned when no value has been stored under the key
var ErrNotFound = fmt.Errorf("flag not found")

// FlagStore persists small per-user flags across sessions
type FlagStore interface {
	// GetInt returns the stored integer, or ErrNotFound if never set
	GetInt(ctx context.Context, key, userID string) (int, error)

	// SetInt stores an integer flag for the user
	SetInt(ctx context.Context, key, userID string, value int) error

	// GetBool returns the stored boolean, or ErrNotFound if never set
	GetBool(ctx context.Context, key, userID string) (bool, error)

	// SetBool stores a boolean flag for the user
	SetBool(ctx context.Context, key, userID string, value bool) error
}

// flagKey namespaces a flag by user id
func flagKey(key, userID string) string {
	return key + "_" + userID
}

// MemoryFlagStore is an in-process FlagStore used when no Redis address is
// configured and in tests. Safe for concurrent use.
type MemoryFlagStore struct {
	mu    sync.RWMutex
	ints  map[string]int
	bools map[string]bool
}

// NewMemoryFlagStore creates an empty in-memory flag store
func NewMemoryFlagStore() *MemoryFlagStore {
	return &MemoryFlagStore{
		ints:  make(map[string]int),
		bools: make(map[string]bool),
	}
}

func (s *MemoryFlagStore) GetInt(_ context.Context, key, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.ints[flagKey(key, userID)]
	if !ok {
		return 0, ErrNotFound
	}
	return v, nil
}

func (s *MemoryFlagStore) SetInt(_ context.Context, key, userID string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ints[flagKey(key, userID)] = value
	return nil
}

func (s *MemoryFlagStore) GetBool(_ context.Context, key, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.bools[flagKey(key, userID)]
	if !ok {
		return false, ErrNotFound
	}
	return v, nil
}

func (s *MemoryFlagStore) SetBool(_ context.Context, key, userID string, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bools[flagKey(key, userID)] = value
	return nil
}
