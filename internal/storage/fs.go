package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/chronicle/internal/apperr"
)

// Vault layout.
const (
	DocExt    = ".md"
	IndexName = "_index" + DocExt
	AssetsDir = "assets"
	ImagesDir = AssetsDir + "/images"
)

// FS implements Provider backed by the local file system.
type FS struct {
	sb *Sandbox
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	sb, err := NewSandbox(root)
	if err != nil {
		return nil, err
	}
	return &FS{sb: sb}, nil
}

// Root returns the canonical vault root.
func (f *FS) Root() string { return f.sb.Root() }

// Sandbox returns the path sandbox guarding this file system.
func (f *FS) Sandbox() *Sandbox { return f.sb }

// Resolve maps a vault-relative path to an absolute path inside the root.
func (f *FS) Resolve(path string) (string, error) { return f.sb.Resolve(path) }

// Rel maps an absolute path back to its vault-relative form.
func (f *FS) Rel(abs string) (string, error) { return f.sb.Rel(abs) }

// Read returns the raw bytes of a vault file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.sb.Resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("storage: read %s: %w", path, apperr.ErrNotFound)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.sb.Resolve(path)
	if err != nil {
		return err
	}
	if abs == f.sb.Root() {
		return fmt.Errorf("storage: write to vault root: %w", apperr.ErrInvalidPath)
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".chronicle-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	// CreateTemp uses 0600; notes are shared with git and editors.
	_ = os.Chmod(tmpName, 0o644)
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Delete removes a file from the vault, then removes every ancestor
// directory left empty, stopping below the vault root.
func (f *FS) Delete(path string) error {
	abs, err := f.sb.Resolve(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return fmt.Errorf("storage: delete %s: %w", path, apperr.ErrNotFound)
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	f.pruneEmpty(filepath.Dir(abs))
	return nil
}

func (f *FS) pruneEmpty(dir string) {
	for dir != f.sb.Root() && f.sb.Contains(dir) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// Move renames a file within the vault. The destination must not exist.
func (f *FS) Move(oldPath, newPath string) error {
	absOld, err := f.sb.Resolve(oldPath)
	if err != nil {
		return err
	}
	absNew, err := f.sb.Resolve(newPath)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(absOld); err != nil {
		return fmt.Errorf("storage: move %s: %w", oldPath, apperr.ErrNotFound)
	}
	if _, err := os.Lstat(absNew); err == nil {
		return fmt.Errorf("storage: move to %s: %w", newPath, apperr.ErrConflict)
	}
	if err := os.MkdirAll(filepath.Dir(absNew), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir for move: %w", err)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return fmt.Errorf("storage: move: %w", err)
	}
	return nil
}

// Exists reports whether anything exists at path.
func (f *FS) Exists(path string) bool {
	abs, err := f.sb.Resolve(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}

// Documents walks the vault and returns every .md file, sorted by path.
// Hidden directories (.git and friends) are skipped, unreadable entries are
// ignored.
func (f *FS) Documents() ([]string, error) {
	root := f.sb.Root()
	var out []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if d != nil && d.IsDir() && p != root {
				return filepath.SkipDir
			}
			if p == root {
				return walkErr
			}
			return nil
		}
		if d.IsDir() {
			if p != root && IsHidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !strings.HasSuffix(d.Name(), DocExt) {
			return nil
		}
		rel, err := f.sb.Rel(p)
		if err != nil {
			return nil
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

// IsHidden reports whether a file or directory name is hidden.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// InAssets reports whether a vault-relative path lives under the assets tree.
func InAssets(rel string) bool {
	return rel == AssetsDir || strings.HasPrefix(rel, AssetsDir+"/")
}

// Stem returns the base name of a slash path without its final extension.
func Stem(rel string) string {
	base := rel
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	if stem := strings.TrimSuffix(base, filepath.Ext(base)); stem != "" {
		return stem
	}
	return base
}
