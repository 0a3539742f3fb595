package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver (cgo), registered as "sqlite3"
	_ "modernc.org/sqlite"          // SQLite driver (pure Go), registered as "sqlite"
)

const (
	// DriverModernc is the pure Go driver name.
	DriverModernc = "sqlite"
	// DriverMattn is the cgo driver name.
	DriverMattn = "sqlite3"
)

const blobSchema = `
CREATE TABLE IF NOT EXISTS blobs (
	name TEXT PRIMARY KEY,
	version TEXT NOT NULL,
	record TEXT NOT NULL,
	size INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_blobs_updated_at ON blobs(updated_at);
`

// SQLiteStore implements Store on a SQLite database. Each blob is kept as
// its JSON record plus the version and write time in separate columns so
// listing never has to decode content.
type SQLiteStore struct {
	db               *sql.DB
	path             string
	driver           string
	checkpointPeriod time.Duration
	done             chan struct{}
	closeOnce        sync.Once

	getStmt    *sql.Stmt
	setStmt    *sql.Stmt
	deleteStmt *sql.Stmt
	listStmt   *sql.Stmt
	touchStmt  *sql.Stmt
}

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	// Path is the database file. ":memory:" is accepted for tests.
	Path string

	// Driver selects DriverModernc (default) or DriverMattn.
	Driver string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5 minutes
	CheckpointInterval time.Duration
}

// NewSQLiteStore opens (and if needed creates) a SQLite blob store.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverModernc
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}

	dsn, err := sqliteDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{
		db:               db,
		path:             cfg.Path,
		driver:           cfg.Driver,
		checkpointPeriod: cfg.CheckpointInterval,
		done:             make(chan struct{}),
	}

	if _, err := db.Exec(blobSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	go s.checkpointLoop()

	return s, nil
}

// sqliteDSN builds the connection string. The two drivers spell pragmas
// differently.
func sqliteDSN(cfg SQLiteConfig) (string, error) {
	ms := cfg.BusyTimeout.Milliseconds()
	switch cfg.Driver {
	case DriverModernc:
		return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
			cfg.Path, ms), nil
	case DriverMattn:
		return fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL",
			cfg.Path, ms), nil
	default:
		return "", fmt.Errorf("unknown sqlite driver %q (want %q or %q)", cfg.Driver, DriverModernc, DriverMattn)
	}
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.getStmt, err = s.db.Prepare(`SELECT record, updated_at FROM blobs WHERE name = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	s.setStmt, err = s.db.Prepare(`
		INSERT INTO blobs (name, version, record, size, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			version = excluded.version,
			record = excluded.record,
			size = excluded.size,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare set statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`DELETE FROM blobs WHERE name = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`SELECT name, version, size, updated_at FROM blobs ORDER BY name`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	s.touchStmt, err = s.db.Prepare(`UPDATE blobs SET updated_at = ? WHERE name = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare touch statement: %w", err)
	}

	return nil
}

// Get returns the blob stored under name.
func (s *SQLiteStore) Get(ctx context.Context, name string) (*Blob, error) {
	var (
		record    string
		updatedAt int64
	)
	err := s.getStmt.QueryRowContext(ctx, name).Scan(&record, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "get", Name: name, Err: err}
	}

	blob, err := Decode([]byte(record))
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "get", Name: name, Err: err}
	}
	blob.UpdatedAt = time.Unix(0, updatedAt)
	return blob, nil
}

// Set stores blob under name.
func (s *SQLiteStore) Set(ctx context.Context, name string, blob *Blob) error {
	if err := validate(name, blob); err != nil {
		return &StorageError{Backend: "sqlite", Op: "set", Name: name, Err: err}
	}

	record, err := Encode(blob)
	if err != nil {
		return &StorageError{Backend: "sqlite", Op: "set", Name: name, Err: err}
	}

	updatedAt := blob.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	if _, err := s.setStmt.ExecContext(ctx, name, blob.Version, string(record), len(blob.Content), updatedAt.UnixNano()); err != nil {
		return &StorageError{Backend: "sqlite", Op: "set", Name: name, Err: err}
	}
	return nil
}

// Touch sets the write time of the blob stored under name to now.
func (s *SQLiteStore) Touch(ctx context.Context, name string) error {
	if _, err := s.touchStmt.ExecContext(ctx, time.Now().UnixNano(), name); err != nil {
		return &StorageError{Backend: "sqlite", Op: "touch", Name: name, Err: err}
	}
	return nil
}

// Delete removes the blob stored under name.
func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	if _, err := s.deleteStmt.ExecContext(ctx, name); err != nil {
		return &StorageError{Backend: "sqlite", Op: "delete", Name: name, Err: err}
	}
	return nil
}

// List returns metadata for every stored blob.
func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "list", Err: err}
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			updatedAt int64
		)
		if err := rows.Scan(&e.Name, &e.Version, &e.Size, &updatedAt); err != nil {
			return nil, &StorageError{Backend: "sqlite", Op: "list", Err: err}
		}
		e.UpdatedAt = time.Unix(0, updatedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "list", Err: err}
	}
	return entries, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database. Close is idempotent.
func (s *SQLiteStore) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		close(s.done)

		for _, stmt := range []*sql.Stmt{s.getStmt, s.setStmt, s.deleteStmt, s.listStmt, s.touchStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}

		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		closeErr = s.db.Close()
	})

	return closeErr
}

func (s *SQLiteStore) checkpointLoop() {
	ticker := time.NewTicker(s.checkpointPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-s.done:
			return
		}
	}
}
