package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory. Content is lost when the
// process exits. It is the default store and the one used in tests.
type MemoryStore struct {
	// blobs maps resource names to stored blobs.
	blobs map[string]*Blob

	// mu protects access to blobs.
	mu sync.RWMutex

	closed bool

	// now is overridable for retention tests.
	now func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[string]*Blob),
		now:   time.Now,
	}
}

// Get returns a copy of the blob stored under name.
func (s *MemoryStore) Get(ctx context.Context, name string) (*Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	b, ok := s.blobs[name]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

// Set stores a copy of blob under name.
func (s *MemoryStore) Set(ctx context.Context, name string, blob *Blob) error {
	if err := validate(name, blob); err != nil {
		return &StorageError{Backend: "memory", Op: "set", Name: name, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	cp := *blob
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = s.now()
	}
	s.blobs[name] = &cp
	return nil
}

// Touch sets the write time of the blob stored under name to now.
func (s *MemoryStore) Touch(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if b, ok := s.blobs[name]; ok {
		b.UpdatedAt = s.now()
	}
	return nil
}

// Delete removes the blob stored under name.
func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	delete(s.blobs, name)
	return nil
}

// List returns metadata for every stored blob.
func (s *MemoryStore) List(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	entries := make([]Entry, 0, len(s.blobs))
	for name, b := range s.blobs {
		entries = append(entries, Entry{
			Name:      name,
			Version:   b.Version,
			Size:      int64(len(b.Content)),
			UpdatedAt: b.UpdatedAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Len returns the number of stored blobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// Ping reports whether the store is open.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close marks the store closed and drops its content.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.blobs = nil
	return nil
}
