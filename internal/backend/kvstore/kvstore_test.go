package kvstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"modelcache/internal/backend"
	"modelcache/internal/blob"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Path: filepath.Join(t.TempDir(), "nested", "kv.db"), Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRestoreEmptyIsNotFound(t *testing.T) {
	s := openTemp(t)
	b, err := s.Restore(context.Background())
	if b != nil || !backend.IsNotFound(err) {
		t.Fatalf("expected not found, got b=%v err=%v", b, err)
	}
}

func TestStoreOverwritesSingleEntry(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	if err := s.Store(ctx, blob.FromBytes([]byte{1, 2})); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := s.Store(ctx, blob.FromBytes([]byte{3, 4, 5})); err != nil {
		t.Fatalf("store again: %v", err)
	}
	b, err := s.Restore(ctx)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	data, _ := b.Bytes()
	if string(data) != "\x03\x04\x05" {
		t.Fatalf("restored %v", data)
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&n); err != nil || n != 1 {
		t.Fatalf("rows=%d err=%v", n, err)
	}
}

func TestPutGetDelete(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	if err := s.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	v, err := s.Get(ctx, "k")
	if err != nil || string(v) != "v" {
		t.Fatalf("get=%q err=%v", v, err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !backend.IsNotFound(err) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestOpenEmptyPath(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Fatalf("expected error")
	}
}
