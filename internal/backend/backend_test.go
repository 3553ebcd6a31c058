package backend

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"modelcache/internal/blob"
)

func TestErrorPredicates(t *testing.T) {
	nf := fmt.Errorf("wrapped: %w", ErrNotFound(NameKeyValue, StoredName))
	if !IsNotFound(nf) || IsUnavailable(nf) || IsPermissionDenied(nf) {
		t.Fatalf("not-found classification wrong for %v", nf)
	}
	cause := errors.New("no such dir")
	un := ErrUnavailable(NameFileSystem, cause)
	if !IsUnavailable(un) || !errors.Is(un, cause) {
		t.Fatalf("unavailable classification wrong for %v", un)
	}
	pd := ErrPermissionDenied(NameFileHandle, "denied")
	if !IsPermissionDenied(pd) || pd.Error() != "file-handle-cache: permission denied" {
		t.Fatalf("permission classification wrong for %v", pd)
	}
}

func TestUnsupportedAdapterFails(t *testing.T) {
	a := Unsupported(NameResponse, errors.New("redis down"))
	if a.Name() != NameResponse {
		t.Fatalf("name=%q", a.Name())
	}
	if err := a.Store(context.Background(), blob.FromBytes([]byte{1})); !IsUnavailable(err) {
		t.Fatalf("store err=%v", err)
	}
	if b, err := a.Restore(context.Background()); b != nil || !IsUnavailable(err) {
		t.Fatalf("restore b=%v err=%v", b, err)
	}
}

func TestDisplayName(t *testing.T) {
	if DisplayName(NameKeyValue) != "Key-Value Store" {
		t.Fatalf("unexpected display name")
	}
	if DisplayName("custom") != "custom" {
		t.Fatalf("unknown names pass through")
	}
}
