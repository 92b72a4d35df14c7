package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/chronicle/internal/apperr"
)

// Sandbox resolves client paths against a canonical vault root and rejects
// anything that lands outside it, including escapes through symlinks.
type Sandbox struct {
	root string // canonical absolute root, symlinks resolved
}

// NewSandbox canonicalizes root. The directory must already exist.
func NewSandbox(root string) (*Sandbox, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	info, err := os.Stat(canon)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &Sandbox{root: canon}, nil
}

// Root returns the canonical vault root.
func (s *Sandbox) Root() string { return s.root }

// Resolve joins rel to the root, canonicalizes the result and requires it to
// stay within the root. An empty rel resolves to the root itself.
func (s *Sandbox) Resolve(rel string) (string, error) {
	if strings.ContainsRune(rel, 0) {
		return "", fmt.Errorf("storage: %q: %w", rel, apperr.ErrInvalidPath)
	}
	native := filepath.FromSlash(rel)
	if filepath.IsAbs(native) || filepath.VolumeName(native) != "" {
		return "", fmt.Errorf("storage: absolute path %q: %w", rel, apperr.ErrInvalidPath)
	}
	canon := canonicalize(filepath.Join(s.root, native))
	if !s.Contains(canon) {
		return "", fmt.Errorf("storage: %q escapes vault root: %w", rel, apperr.ErrInvalidPath)
	}
	return canon, nil
}

// Contains reports whether abs is the root or lies beneath it.
func (s *Sandbox) Contains(abs string) bool {
	return abs == s.root || strings.HasPrefix(abs, s.root+string(os.PathSeparator))
}

// Rel maps an absolute path inside the vault to its slash-separated
// vault-relative form.
func (s *Sandbox) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return "", fmt.Errorf("storage: rel %s: %w", abs, apperr.ErrInvalidPath)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: %s outside vault: %w", abs, apperr.ErrInvalidPath)
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

// canonicalize resolves symlinks on the longest existing prefix of p and
// re-attaches the components that do not exist yet.
func canonicalize(p string) string {
	p = filepath.Clean(p)
	var tail []string
	cur := p
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(append([]string{resolved}, tail...)...)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p
		}
		tail = append([]string{filepath.Base(cur)}, tail...)
		cur = parent
	}
}
