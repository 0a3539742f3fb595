package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Store persists cached resource content keyed by resource name.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the blob stored under name.
	// Returns nil, nil if nothing is stored.
	Get(ctx context.Context, name string) (*Blob, error)

	// Set stores blob under name, replacing any previous value.
	Set(ctx context.Context, name string, blob *Blob) error

	// Delete removes the blob stored under name.
	// No-op if nothing is stored.
	Delete(ctx context.Context, name string) error

	// List returns metadata for every stored blob, sorted by name.
	List(ctx context.Context) ([]Entry, error)

	// Close releases any resources held by the store.
	Close() error
}

// Pinger is implemented by stores that can report their availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Toucher is implemented by stores that can mark a blob as used without
// rewriting its content. It is a no-op when nothing is stored under name.
type Toucher interface {
	Touch(ctx context.Context, name string) error
}

// Blob is the cached content of one resource together with the version it
// was fetched for.
type Blob struct {
	// Content is the resource body.
	Content string `json:"content"`

	// Version is the manifest version the content belongs to.
	Version string `json:"version"`

	// UpdatedAt is when the blob was written. Not part of the record.
	UpdatedAt time.Time `json:"-"`
}

// Entry describes a stored blob without its content.
type Entry struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage: store is closed")

// StorageError wraps a backend failure with the operation and key.
type StorageError struct {
	Backend string
	Op      string
	Name    string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("storage %s: %s: %v", e.Backend, e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s: %s %q: %v", e.Backend, e.Op, e.Name, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Encode serialises a blob as the JSON record {"content": ..., "version": ...}.
func Encode(b *Blob) ([]byte, error) {
	if b == nil {
		return nil, errors.New("blob cannot be nil")
	}
	return json.Marshal(b)
}

// Decode parses a JSON blob record.
func Decode(data []byte) (*Blob, error) {
	var b Blob
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to decode blob record: %w", err)
	}
	return &b, nil
}

func validate(name string, blob *Blob) error {
	if name == "" {
		return errors.New("name cannot be empty")
	}
	if blob == nil {
		return errors.New("blob cannot be nil")
	}
	return nil
}
