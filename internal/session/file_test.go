package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var _ Handler = (*FileHandler)(nil)

func openFileHandler(t *testing.T) (*FileHandler, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "sessions")
	h := NewFileHandler()
	if err := h.Open(dir, "GRAYDBSESSID"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return h, dir
}

func TestFileHandlerWriteRead(t *testing.T) {
	ctx := context.Background()
	h, dir := openFileHandler(t)
	id := NewID()

	if err := h.Write(ctx, &State{Remember: true}, id, "line one\nline two"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "sess_"+id))
	if err != nil {
		t.Fatalf("reading session file: %v", err)
	}
	if string(raw) != "1\n0\nline one\nline two" {
		t.Errorf("file content = %q", raw)
	}

	st := &State{}
	data, err := h.Read(ctx, st, id)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if data != "line one\nline two" {
		t.Errorf("Read() = %q", data)
	}
	if !st.Remember || st.Strict {
		t.Errorf("Read() state = %+v, want remember only", st)
	}

	info, err := os.Stat(filepath.Join(dir, "sess_"+id))
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != filePermissions {
		t.Errorf("file permissions = %o, want %o", perm, filePermissions)
	}
}

func TestFileHandlerMissingAndDestroy(t *testing.T) {
	ctx := context.Background()
	h, _ := openFileHandler(t)
	id := NewID()

	if data, err := h.Read(ctx, &State{}, id); err != nil || data != "" {
		t.Errorf("Read(missing) = %q, %v", data, err)
	}
	if err := h.Write(ctx, &State{}, id, "x"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := h.Destroy(ctx, &State{}, id); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if err := h.Destroy(ctx, &State{}, id); err != nil {
		t.Errorf("Destroy(missing) error = %v", err)
	}
}

func TestFileHandlerGC(t *testing.T) {
	ctx := context.Background()
	h, dir := openFileHandler(t)

	for id, remember := range map[string]bool{"old": false, "kept": true, "fresh": false} {
		if err := h.Write(ctx, &State{Remember: remember}, id, "x"); err != nil {
			t.Fatalf("Write(%s) error = %v", id, err)
		}
	}
	old := time.Now().Add(-2 * time.Hour)
	for _, id := range []string{"old", "kept"} {
		if err := os.Chtimes(filepath.Join(dir, "sess_"+id), old, old); err != nil {
			t.Fatalf("Chtimes() error = %v", err)
		}
	}

	removed, err := h.GC(ctx, time.Hour)
	if err != nil {
		t.Fatalf("GC() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("GC() removed %d, want 1", removed)
	}
	if _, err := os.Stat(filepath.Join(dir, "sess_old")); !errors.Is(err, os.ErrNotExist) {
		t.Error("sess_old survived GC")
	}
	for _, id := range []string{"kept", "fresh"} {
		if _, err := os.Stat(filepath.Join(dir, "sess_"+id)); err != nil {
			t.Errorf("sess_%s removed: %v", id, err)
		}
	}
}

func TestFileHandlerValidation(t *testing.T) {
	ctx := context.Background()

	unopened := NewFileHandler()
	if _, err := unopened.Read(ctx, &State{}, "abc"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Read() before Open error = %v, want ErrNotOpen", err)
	}
	if _, err := unopened.GC(ctx, time.Hour); !errors.Is(err, ErrNotOpen) {
		t.Errorf("GC() before Open error = %v, want ErrNotOpen", err)
	}

	h, _ := openFileHandler(t)
	for _, id := range []string{"", "../x", "a/b", "sp ace"} {
		if err := h.Write(ctx, &State{}, id, "x"); !errors.Is(err, ErrInvalidID) {
			t.Errorf("Write(%q) error = %v, want ErrInvalidID", id, err)
		}
	}
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	if a == b {
		t.Error("NewID() returned duplicates")
	}
	if !ValidID(a) {
		t.Errorf("NewID() = %q is not a valid ID", a)
	}
}
