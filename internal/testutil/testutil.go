// Package testutil provides shared test helpers for setting up stores
// and providers.
package testutil

import (
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/arnaldur/lesari/internal/storage"
)

// Logger returns a quiet structured logger for tests.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TempFS creates a temporary data directory with an FS provider.
func TempFS(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return dir, fs
}

// MemProvider is an in-memory storage.Provider that counts writes and
// can be told to fail them, for persistence-behavior tests.
type MemProvider struct {
	mu       sync.Mutex
	values   map[string][]byte
	SetCalls int
	FailSet  bool
	SetErr   error
}

// NewMemProvider returns an empty in-memory provider.
func NewMemProvider() *MemProvider {
	return &MemProvider{values: make(map[string][]byte)}
}

// Get implements storage.Provider.
func (m *MemProvider) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set implements storage.Provider.
func (m *MemProvider) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetCalls++
	if m.FailSet {
		if m.SetErr != nil {
			return m.SetErr
		}
		return os.ErrPermission
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	m.values[key] = stored
	return nil
}

// Delete implements storage.Provider.
func (m *MemProvider) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Keys implements storage.Provider.
func (m *MemProvider) Keys() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.values {
		out = append(out, k)
	}
	return out, nil
}

// Stored returns the current bytes under key, or nil.
func (m *MemProvider) Stored(key string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key]
}
