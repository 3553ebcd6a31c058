// Package kvstore implements the structured durable key-value backend on top
// of an embedded SQLite database.
package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"modelcache/internal/backend"
	"modelcache/internal/blob"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Config holds the database location.
type Config struct {
	Path   string
	Logger zerolog.Logger
}

// Store is a string-keyed durable store. It doubles as the key-value
// backend adapter for the cached model.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

var _ backend.Adapter = (*Store)(nil)

// Open opens (creating when needed) the database at cfg.Path.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("kvstore: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db, log: cfg.Logger}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put writes value under key, replacing any previous value.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Get returns the value under key or a not-found error.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, backend.ErrNotFound(backend.NameKeyValue, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Name implements backend.Adapter.
func (s *Store) Name() string { return backend.NameKeyValue }

// Store implements backend.Adapter.
func (s *Store) Store(ctx context.Context, b *blob.Blob) error {
	data, err := b.Bytes()
	if err != nil {
		return fmt.Errorf("read blob: %w", err)
	}
	if err := s.Put(ctx, backend.StoredName, data); err != nil {
		return err
	}
	s.log.Debug().Int64("bytes", b.Size()).Msg("model cached in key-value store")
	return nil
}

// Restore implements backend.Adapter.
func (s *Store) Restore(ctx context.Context) (*blob.Blob, error) {
	data, err := s.Get(ctx, backend.StoredName)
	if err != nil {
		return nil, err
	}
	return blob.FromBytes(data), nil
}
