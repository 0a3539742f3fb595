package storage

import (
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendS3     = "s3"
)

// Options selects and configures a store backend.
type Options struct {
	// Backend is one of BackendMemory, BackendSQLite or BackendS3.
	Backend string

	SQLite SQLiteConfig
	S3     S3Config
}

// Open creates the store described by opts.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		return NewSQLiteStore(opts.SQLite)
	case BackendS3:
		if opts.S3.Bucket == "" {
			return nil, fmt.Errorf("s3 bucket cannot be empty")
		}
		client, err := NewS3Client(opts.S3)
		if err != nil {
			return nil, err
		}
		return NewS3Store(client, opts.S3.Bucket, opts.S3.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
