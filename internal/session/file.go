package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// File storage constants.
const (
	// filePrefix prefixes every session file name.
	filePrefix = "sess_"

	// dirPermissions is the permission mode for the save directory.
	dirPermissions = 0700

	// filePermissions is the permission mode for session files.
	filePermissions = 0600

	// fileParts is remember, strict and data.
	fileParts = 3
)

// FileHandler stores each session in <savePath>/sess_<id> as
// "remember\nstrict\ndata". Session names are not part of the file name.
type FileHandler struct {
	dir string
	now func() time.Time
}

// NewFileHandler creates a file handler. Call Open before use.
func NewFileHandler() *FileHandler {
	return &FileHandler{now: time.Now}
}

// Open sets the save directory, creating it if needed.
func (h *FileHandler) Open(savePath, _ string) error {
	if savePath == "" {
		return fmt.Errorf("%w: empty save path", ErrNotOpen)
	}
	if err := os.MkdirAll(savePath, dirPermissions); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	h.dir = savePath
	return nil
}

// Close is a no-op.
func (h *FileHandler) Close() error {
	return nil
}

// Read returns the session data and copies its flags into st.
func (h *FileHandler) Read(_ context.Context, st *State, id string) (string, error) {
	path, err := h.path(id)
	if err != nil {
		return "", err
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading session: %w", err)
	}

	parts := strings.SplitN(string(raw), "\n", fileParts)
	if len(parts) != fileParts {
		return "", fmt.Errorf("reading session: malformed file %s", filepath.Base(path))
	}
	st.Remember = parts[0] == "1"
	st.Strict = parts[1] == "1"
	return parts[2], nil
}

// Write replaces the session file atomically.
func (h *FileHandler) Write(_ context.Context, st *State, id, data string) error {
	path, err := h.path(id)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(h.dir, ".tmp_"+filePrefix)
	if err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := fmt.Fprintf(tmp, "%d\n%d\n%s", boolInt(st.Remember), boolInt(st.Strict), data); err != nil {
		tmp.Close() //nolint:errcheck // reporting the write error
		return fmt.Errorf("writing session: %w", err)
	}
	if err := tmp.Chmod(filePermissions); err != nil {
		tmp.Close() //nolint:errcheck // reporting the chmod error
		return fmt.Errorf("writing session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// Destroy removes the session file.
func (h *FileHandler) Destroy(_ context.Context, _ *State, id string) error {
	path, err := h.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("destroying session: %w", err)
	}
	return nil
}

// GC removes session files not modified within maxLifetime whose remember
// flag is 0.
func (h *FileHandler) GC(ctx context.Context, maxLifetime time.Duration) (int64, error) {
	if h.dir == "" {
		return 0, ErrNotOpen
	}

	matches, err := filepath.Glob(filepath.Join(h.dir, filePrefix+"*"))
	if err != nil {
		return 0, fmt.Errorf("collecting sessions: %w", err)
	}

	cutoff := h.now().Add(-maxLifetime)
	var removed int64
	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		info, err := os.Stat(path)
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if remembered(path) {
			continue
		}
		if err := os.Remove(path); err == nil {
			removed++
		}
	}
	return removed, nil
}

// remembered reads the first line of a session file. Unreadable files are
// treated as remembered and left alone.
func remembered(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close() //nolint:errcheck // read-only

	buf := make([]byte, 2)
	n, _ := f.Read(buf) //nolint:errcheck // short reads handled below
	return n == 0 || buf[0] != '0'
}

func (h *FileHandler) path(id string) (string, error) {
	if h.dir == "" {
		return "", ErrNotOpen
	}
	if !ValidID(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(h.dir, filePrefix+id), nil
}
