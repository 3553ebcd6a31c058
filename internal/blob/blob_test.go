package blob

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestFromBytes(t *testing.T) {
	b := FromBytes([]byte{1, 2, 3})
	if b.Size() != 3 || b.Path() != "" || b.Handle() != nil {
		t.Fatalf("unexpected blob: size=%d path=%q", b.Size(), b.Path())
	}
	rc, err := b.Open()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "\x01\x02\x03" {
		t.Fatalf("got %v", got)
	}
}

func TestFromFileAndHandle(t *testing.T) {
	p := filepath.Join(t.TempDir(), "model.bin")
	if err := os.WriteFile(p, []byte("weights"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := FromFile(p)
	if err != nil {
		t.Fatalf("from file: %v", err)
	}
	if b.Size() != 7 || b.Path() != p {
		t.Fatalf("unexpected blob: %+v", b)
	}
	h, err := HandleFor(p)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	hb := b.WithHandle(h)
	if hb.Handle() == nil || hb.Handle().Name != "model.bin" {
		t.Fatalf("handle not attached")
	}
	if b.Handle() != nil {
		t.Fatalf("WithHandle mutated the original")
	}
	data, err := hb.Bytes()
	if err != nil || string(data) != "weights" {
		t.Fatalf("bytes=%q err=%v", data, err)
	}
}

func TestFromFileErrors(t *testing.T) {
	if _, err := FromFile(filepath.Join(t.TempDir(), "missing.bin")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := FromFile(t.TempDir()); err == nil {
		t.Fatalf("expected error for directory")
	}
}
