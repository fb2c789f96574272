package blobstore

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"sync"
)

// Stats counts the operations performed on a Memory store.
type Stats struct {
	Saves   int
	Deletes int
	Opens   int
}

// Memory is a map-backed store. It is safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	data  map[string][]byte
	stats Stats
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Save stores a copy of content at p.
func (m *Memory) Save(p string, content []byte) (string, error) {
	if err := ValidatePath(p); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[p] = bytes.Clone(content)
	m.stats.Saves++
	return p, nil
}

// Delete removes p.
func (m *Memory) Delete(p string) error {
	if err := ValidatePath(p); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, p)
	m.stats.Deletes++
	return nil
}

// Open returns a reader over a snapshot of the content at p.
func (m *Memory) Open(p string) (io.ReadCloser, error) {
	if err := ValidatePath(p); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Opens++
	b, ok := m.data[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

// List returns all stored paths, sorted.
func (m *Memory) List() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.data))
	for p := range m.data {
		out = append(out, p)
	}
	slices.Sort(out)
	return out, nil
}

// Exists reports whether p is stored.
func (m *Memory) Exists(p string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[p]
	return ok
}

// Stats returns the operation counters.
func (m *Memory) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// ResetStats zeroes the operation counters.
func (m *Memory) ResetStats() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = Stats{}
}
