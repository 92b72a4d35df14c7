// Package storage provides the sandboxed vault file system.
package storage

// Provider is the interface for vault file operations. All paths are
// slash-separated and relative to the vault root.
type Provider interface {
	// Root returns the canonical absolute vault root.
	Root() string
	// Resolve maps a vault-relative path to an absolute one inside the root.
	Resolve(path string) (string, error)
	// Rel maps an absolute path inside the vault back to its relative form.
	Rel(abs string) (string, error)
	// Read returns the raw bytes of the regular file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the file at path and prunes empty ancestors.
	Delete(path string) error
	// Move renames oldPath to newPath. newPath must not exist.
	Move(oldPath, newPath string) error
	// Exists reports whether anything exists at path.
	Exists(path string) bool
	// Documents returns every markdown document, sorted by path.
	Documents() ([]string, error)
}

// Verify *FS satisfies Provider at compile time.
var _ Provider = (*FS)(nil)
