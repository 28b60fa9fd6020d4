// Package workspace is the only code that touches mission files. It
// owns content hashing, the staleness re-check, atomic patch
// application, and the checkpoint store used for rollback.
package workspace

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

// Workspace mediates all file access under one root directory. Paths in
// the public API are always relative to the root; anything that escapes
// the root is rejected before touching the filesystem.
type Workspace struct {
	root   string
	logger *zap.Logger
}

// New creates a workspace rooted at dir.
func New(dir string, logger *zap.Logger) (*Workspace, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace root %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", dir)
	}
	return &Workspace{root: abs, logger: logger}, nil
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string { return w.root }

// resolve maps a relative path into the root, refusing escapes.
func (w *Workspace) resolve(rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("path %s must be relative to the workspace", rel)
	}
	clean := filepath.Clean(rel)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s escapes the workspace", rel)
	}
	return filepath.Join(w.root, clean), nil
}

// ReadFile reads a workspace file.
func (w *Workspace) ReadFile(rel string) ([]byte, error) {
	abs, err := w.resolve(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return data, nil
}

// Exists reports whether a workspace file exists.
func (w *Workspace) Exists(rel string) bool {
	abs, err := w.resolve(rel)
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}

// HashBytes returns the content hash used throughout: sha256 hex.
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// HashFile hashes one workspace file. A missing file hashes to "".
func (w *Workspace) HashFile(rel string) (string, error) {
	abs, err := w.resolve(rel)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to hash %s: %w", rel, err)
	}
	return HashBytes(data), nil
}

// Snapshot captures content hashes for the given files. Missing files
// record an empty hash so their later appearance is detected as drift.
func (w *Workspace) Snapshot(files []string) (map[string]string, error) {
	snap := make(map[string]string, len(files))
	for _, rel := range files {
		h, err := w.HashFile(rel)
		if err != nil {
			return nil, err
		}
		snap[rel] = h
	}
	return snap, nil
}

// CheckStaleness compares current file contents against a snapshot and
// returns the drifted paths, sorted.
func (w *Workspace) CheckStaleness(snapshot map[string]string) ([]string, error) {
	var stale []string
	for rel, want := range snapshot {
		got, err := w.HashFile(rel)
		if err != nil {
			return nil, err
		}
		if got != want {
			stale = append(stale, rel)
		}
	}
	sort.Strings(stale)
	return stale, nil
}

// writeFileAtomic writes via temp-file-then-rename so a crash never
// leaves a half-written workspace file.
func (w *Workspace) writeFileAtomic(abs string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", abs, err)
	}
	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return fmt.Errorf("failed to generate temp name: %w", err)
	}
	tmp := filepath.Join(filepath.Dir(abs),
		fmt.Sprintf(".%s.tmp.%d.%s", filepath.Base(abs), os.Getpid(), hex.EncodeToString(suffix)))

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	ok := false
	defer func() {
		f.Close()
		if !ok {
			os.Remove(tmp)
		}
	}()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp, abs); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	ok = true
	return nil
}

// ApplyPatches applies a proposal's patches. Every patch's base content
// hash is verified against the live file first; any mismatch aborts the
// whole application before a single byte changes, and the caller is
// expected to re-run staleness handling. Returns the touched paths.
func (w *Workspace) ApplyPatches(patches []types.Patch) ([]string, error) {
	// Verify all bases before mutating anything.
	for _, p := range patches {
		current, err := w.HashFile(p.Path)
		if err != nil {
			return nil, err
		}
		switch p.Action {
		case types.PatchCreate:
			if current != "" {
				return nil, fmt.Errorf("patch does not apply: %s already exists", p.Path)
			}
		case types.PatchUpdate, types.PatchDelete:
			if current == "" {
				return nil, fmt.Errorf("patch does not apply: %s does not exist", p.Path)
			}
			if p.BaseContentHash != "" && current != p.BaseContentHash {
				return nil, fmt.Errorf("base content hash mismatch for %s", p.Path)
			}
		default:
			return nil, fmt.Errorf("unknown patch action %q for %s", p.Action, p.Path)
		}
	}

	var touched []string
	for _, p := range patches {
		abs, err := w.resolve(p.Path)
		if err != nil {
			return touched, err
		}
		switch p.Action {
		case types.PatchCreate, types.PatchUpdate:
			if err := w.writeFileAtomic(abs, []byte(p.NewContent)); err != nil {
				return touched, fmt.Errorf("failed to apply patch to %s: %w", p.Path, err)
			}
		case types.PatchDelete:
			if err := os.Remove(abs); err != nil {
				return touched, fmt.Errorf("failed to delete %s: %w", p.Path, err)
			}
		}
		touched = append(touched, p.Path)
		w.logger.Debug("patch applied",
			zap.String("path", p.Path),
			zap.String("action", string(p.Action)))
	}
	return touched, nil
}
