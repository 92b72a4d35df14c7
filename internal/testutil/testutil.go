// Package testutil provides shared test helpers for setting up vaults and
// git-backed tests.
package testutil

import (
	"os/exec"
	"testing"

	"github.com/starford/chronicle/internal/storage"
)

// Vault creates a temporary vault holding files (vault path to content).
func Vault(t *testing.T, files map[string]string) *storage.FS {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	for p, c := range files {
		if err := fs.Write(p, []byte(c)); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	return fs
}

// Read returns the content of a vault file, failing the test if it is missing.
func Read(t *testing.T, fs *storage.FS, p string) string {
	t.Helper()
	data, err := fs.Read(p)
	if err != nil {
		t.Fatalf("read %s: %v", p, err)
	}
	return string(data)
}

// RequireGit skips the test when no git binary is on PATH.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}
