package vcs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/chronicle/internal/apperr"
	"github.com/starford/chronicle/internal/models"
	"github.com/starford/chronicle/internal/storage"
)

// Pagination defaults for Log.
const (
	DefaultPerPage = 50
	MaxPerPage     = 200
	DefaultFileLog = 20
)

// Collector removes unreferenced assets before a full commit.
type Collector interface {
	Execute(ctx context.Context) (*models.GCReport, error)
}

// Service validates and sandboxes requests before handing them to a
// Repository.
type Service struct {
	repo   Repository
	store  storage.Provider
	gc     Collector
	logger *slog.Logger
}

// NewService wraps repo. gc may be nil.
func NewService(repo Repository, store storage.Provider, gc Collector, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, store: store, gc: gc, logger: logger}
}

// Commit records files, or the whole vault when files is empty. A full commit
// runs asset garbage collection first.
func (s *Service) Commit(ctx context.Context, message string, files []string) (*models.CommitResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("vcs: commit: empty message: %w", apperr.ErrInvalidQuery)
	}
	rels := make([]string, 0, len(files))
	for _, f := range files {
		rel, err := s.sandbox(f)
		if err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	if len(rels) == 0 && s.gc != nil {
		rep, err := s.gc.Execute(ctx)
		if err != nil {
			s.logger.Warn("gc before commit failed", slog.String("error", err.Error()))
		} else if len(rep.Deleted) > 0 {
			s.logger.Info("gc before commit", slog.Int("deleted", len(rep.Deleted)))
		}
	}
	return s.repo.Commit(ctx, message, rels)
}

// Log returns one page of history. page < 1 means 1; perPage is clamped to
// MaxPerPage and defaults to DefaultPerPage.
func (s *Service) Log(ctx context.Context, page, perPage int) (*models.LogPage, error) {
	page = max(page, 1)
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	perPage = min(perPage, MaxPerPage)
	return s.repo.Log(ctx, page, perPage)
}

// Diff returns the per-file changes of a commit.
func (s *Service) Diff(ctx context.Context, hash string) ([]models.FileDiff, error) {
	if err := checkHash(hash); err != nil {
		return nil, err
	}
	return s.repo.Diff(ctx, hash)
}

// Restore returns the vault, or one file, to its state at hash.
func (s *Service) Restore(ctx context.Context, hash, file string) (*models.CommitResult, error) {
	if err := checkHash(hash); err != nil {
		return nil, err
	}
	rel := ""
	if file != "" {
		var err error
		if rel, err = s.sandbox(file); err != nil {
			return nil, err
		}
	}
	res, err := s.repo.Restore(ctx, hash, rel)
	if err != nil {
		return nil, err
	}
	s.logger.Info("restored", slog.String("hash", hash), slog.String("file", rel))
	return res, nil
}

// Status lists uncommitted paths.
func (s *Service) Status(ctx context.Context) ([]models.StatusEntry, error) {
	return s.repo.Status(ctx)
}

// FileLog returns the history of one file. limit <= 0 means DefaultFileLog.
func (s *Service) FileLog(ctx context.Context, file string, limit int) ([]models.Commit, error) {
	rel, err := s.sandbox(file)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultFileLog
	}
	return s.repo.FileLog(ctx, rel, min(limit, MaxPerPage))
}

// WorkingDiff diffs the working copy of file against the last commit.
func (s *Service) WorkingDiff(ctx context.Context, file string) (string, error) {
	rel, err := s.sandbox(file)
	if err != nil {
		return "", err
	}
	return s.repo.WorkingDiff(ctx, rel)
}

// sandbox canonicalizes a vault-relative path, rejecting escapes.
func (s *Service) sandbox(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("vcs: empty path: %w", apperr.ErrInvalidPath)
	}
	abs, err := s.store.Resolve(p)
	if err != nil {
		return "", err
	}
	rel, err := s.store.Rel(abs)
	if err != nil {
		return "", err
	}
	if rel == "." || rel == "" || rel == ".git" || strings.HasPrefix(rel, ".git/") {
		return "", fmt.Errorf("vcs: path %q: %w", p, apperr.ErrInvalidPath)
	}
	return rel, nil
}
