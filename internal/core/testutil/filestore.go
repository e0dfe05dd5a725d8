package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryFileStore is an in-memory file store for service tests.
type MemoryFileStore struct {
	mu         sync.Mutex
	files      map[string][]byte
	seq        int
	FailStore  bool
	FailDelete bool
	Deleted    []string
}

func NewMemoryFileStore() *MemoryFileStore {
	return &MemoryFileStore{files: make(map[string][]byte)}
}

func (m *MemoryFileStore) Store(ctx context.Context, r io.Reader, dir, filename string) (string, error) {
	if m.FailStore {
		return "", fmt.Errorf("disk full")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	ref := fmt.Sprintf("%s/%03d-%s", dir, m.seq, filename)
	m.files[ref] = data
	return ref, nil
}

func (m *MemoryFileStore) Delete(ctx context.Context, ref string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDelete {
		return false
	}
	if _, ok := m.files[ref]; !ok {
		return false
	}
	delete(m.files, ref)
	m.Deleted = append(m.Deleted, ref)
	return true
}

func (m *MemoryFileStore) Exists(ref string) bool {
	return m.Has(ref)
}

func (m *MemoryFileStore) URL(ref string) string {
	if ref == "" {
		return ""
	}
	return "/storage/" + ref
}

// Put seeds a file as if it had been stored earlier.
func (m *MemoryFileStore) Put(ref string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[ref] = []byte("seed")
}

func (m *MemoryFileStore) Has(ref string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[ref]
	return ok
}

func (m *MemoryFileStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}
