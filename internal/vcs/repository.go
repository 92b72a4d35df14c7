// Package vcs records vault history in a version-control repository rooted
// at the vault directory.
package vcs

import (
	"context"
	"fmt"
	"regexp"

	"github.com/starford/chronicle/internal/apperr"
	"github.com/starford/chronicle/internal/models"
)

// Repository is the narrow version-control surface the engine relies on.
// Paths are vault-relative and already sandboxed by the caller.
type Repository interface {
	// Commit stages files, or everything when files is empty, and commits.
	Commit(ctx context.Context, message string, files []string) (*models.CommitResult, error)
	// Log returns one page of history, newest first.
	Log(ctx context.Context, page, perPage int) (*models.LogPage, error)
	// Diff returns the per-file changes introduced by a commit.
	Diff(ctx context.Context, hash string) ([]models.FileDiff, error)
	// Restore checks out a commit's tree, or one file of it, and records the
	// result as a new commit.
	Restore(ctx context.Context, hash, file string) (*models.CommitResult, error)
	// Status lists uncommitted paths.
	Status(ctx context.Context) ([]models.StatusEntry, error)
	// FileLog returns up to limit commits touching one file.
	FileLog(ctx context.Context, path string, limit int) ([]models.Commit, error)
	// WorkingDiff diffs one file's working copy against the last commit.
	WorkingDiff(ctx context.Context, path string) (string, error)
}

var hashRE = regexp.MustCompile(`^[0-9a-fA-F]{4,64}$`)

// ValidHash reports whether s has the shape of an abbreviated or full commit
// digest.
func ValidHash(s string) bool {
	return hashRE.MatchString(s)
}

func checkHash(s string) error {
	if !ValidHash(s) {
		return fmt.Errorf("vcs: invalid commit hash %q: %w", s, apperr.ErrInvalidQuery)
	}
	return nil
}

// Unavailable is the Repository used when history is disabled. Every call
// fails with ErrUpstream.
type Unavailable struct{}

var _ Repository = Unavailable{}

var errDisabled = fmt.Errorf("vcs: history is disabled: %w", apperr.ErrUpstream)

func (Unavailable) Commit(context.Context, string, []string) (*models.CommitResult, error) {
	return nil, errDisabled
}

func (Unavailable) Log(context.Context, int, int) (*models.LogPage, error) {
	return nil, errDisabled
}

func (Unavailable) Diff(context.Context, string) ([]models.FileDiff, error) {
	return nil, errDisabled
}

func (Unavailable) Restore(context.Context, string, string) (*models.CommitResult, error) {
	return nil, errDisabled
}

func (Unavailable) Status(context.Context) ([]models.StatusEntry, error) {
	return nil, errDisabled
}

func (Unavailable) FileLog(context.Context, string, int) ([]models.Commit, error) {
	return nil, errDisabled
}

func (Unavailable) WorkingDiff(context.Context, string) (string, error) {
	return "", errDisabled
}
