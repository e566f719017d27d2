// Package workspace models the directory a generation run writes into.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Workspace is a directory owned by one run at a time. Runs sharing a
// Workspace must bracket their work with Acquire and Release.
type Workspace struct {
	dir string
	mu  sync.Mutex
}

// New returns a handle for dir. The directory is created lazily by Clear.
func New(dir string) *Workspace {
	return &Workspace{dir: dir}
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string { return w.dir }

// Path joins name onto the workspace directory.
func (w *Workspace) Path(name string) string { return filepath.Join(w.dir, name) }

// Acquire blocks until the caller owns the workspace.
func (w *Workspace) Acquire() { w.mu.Lock() }

// Release gives up ownership.
func (w *Workspace) Release() { w.mu.Unlock() }

// Clear removes every entry in the workspace, creating the directory if it
// does not exist yet.
func (w *Workspace) Clear() error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create workspace %q: %w", w.dir, err)
	}
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("read workspace %q: %w", w.dir, err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(w.dir, entry.Name())); err != nil {
			return fmt.Errorf("remove %q: %w", entry.Name(), err)
		}
	}
	return nil
}

// List returns the sorted names of regular files ending with suffix.
func (w *Workspace) List(suffix string) ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read workspace %q: %w", w.dir, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.HasSuffix(entry.Name(), suffix) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Remove deletes the workspace directory and everything in it.
func (w *Workspace) Remove() error {
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("remove workspace %q: %w", w.dir, err)
	}
	return nil
}
