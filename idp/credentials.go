package idp

import (
	"context"
	"sync"
)

var _ CredentialStore = &MemoryCredentialStore{}

// MemoryCredentialStore keeps the session handle for the lifetime of the
// process. State is re-seeded from scratch on every process start, so this is
// the default store.
type MemoryCredentialStore struct {
	mu           sync.Mutex
	refreshToken string
}

// NewMemoryCredentialStore returns an empty in-memory credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{}
}

// Load returns the stored handle, or the empty string when signed out.
func (m *MemoryCredentialStore) Load(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.refreshToken, nil
}

// Save replaces the stored handle.
func (m *MemoryCredentialStore) Save(_ context.Context, refreshToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshToken = refreshToken

	return nil
}

// Clear removes the stored handle.
func (m *MemoryCredentialStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshToken = ""

	return nil
}
