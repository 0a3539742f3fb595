// Package storage provides persistent blob stores for cached resource
// content.
//
// A blob is the fetched body of one resource together with the version it
// was fetched for, serialised as the JSON record
//
//	{"content": "...", "version": "..."}
//
// and stored under the resource name. The loader reads a blob before
// acquiring a cached resource, deletes it when the version no longer matches
// the manifest, and writes it after a successful side-channel fetch.
//
// Backends:
//
//   - MemoryStore keeps blobs in process memory (default, tests).
//   - SQLiteStore keeps blobs in a SQLite file, using either the pure Go
//     modernc.org/sqlite driver or the cgo github.com/mattn/go-sqlite3 driver.
//   - S3Store keeps one object per blob in an S3 bucket.
//
// All backends are safe for concurrent use. Get returns nil, nil for a
// missing blob so callers can treat absence as a cache miss.
package storage
