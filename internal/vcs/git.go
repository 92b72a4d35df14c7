package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/starford/chronicle/internal/apperr"
	"github.com/starford/chronicle/internal/models"
)

// Default author identity configured on repositories that lack one.
const (
	DefaultAuthorName  = "Chronicle"
	DefaultAuthorEmail = "chronicle@localhost"
)

// Git implements Repository by invoking the git binary.
type Git struct {
	root   string
	bin    string
	name   string
	email  string
	logger *slog.Logger
}

var _ Repository = (*Git)(nil)

// GitOption configures a Git repository.
type GitOption func(*Git)

// WithBinary sets the git executable.
func WithBinary(bin string) GitOption {
	return func(g *Git) {
		if bin != "" {
			g.bin = bin
		}
	}
}

// WithIdentity sets the author identity configured when the repository has
// none.
func WithIdentity(name, email string) GitOption {
	return func(g *Git) {
		if name != "" {
			g.name = name
		}
		if email != "" {
			g.email = email
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) GitOption {
	return func(g *Git) { g.logger = l }
}

// Open prepares the repository at root: it initializes one if absent and
// configures the author identity where the repository does not set it.
func Open(ctx context.Context, root string, opts ...GitOption) (*Git, error) {
	g := &Git{
		root:   root,
		bin:    "git",
		name:   DefaultAuthorName,
		email:  DefaultAuthorEmail,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(g)
	}
	if _, err := exec.LookPath(g.bin); err != nil {
		return nil, fmt.Errorf("vcs: %s not found: %w", g.bin, apperr.ErrUpstream)
	}
	if _, err := os.Stat(filepath.Join(root, ".git")); err != nil {
		if _, err := g.run(ctx, "init"); err != nil {
			return nil, err
		}
		g.logger.Info("initialized repository", slog.String("root", root))
	}
	if err := g.ensureConfig(ctx, "user.name", g.name); err != nil {
		return nil, err
	}
	if err := g.ensureConfig(ctx, "user.email", g.email); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Git) ensureConfig(ctx context.Context, key, value string) error {
	_, err := g.run(ctx, "config", "--local", "--get", key)
	if err == nil {
		return nil
	}
	if exitCode(err) != 1 {
		return err
	}
	_, err = g.run(ctx, "config", "--local", key, value)
	return err
}

// Root returns the repository root.
func (g *Git) Root() string { return g.root }

// Commit stages files (or everything) and commits them. When nothing is
// staged no commit is created and the result status is NothingToCommit.
func (g *Git) Commit(ctx context.Context, message string, files []string) (*models.CommitResult, error) {
	args := []string{"add", "-A"}
	if len(files) > 0 {
		args = append(append(args, "--"), files...)
	}
	if _, err := g.run(ctx, args...); err != nil {
		return nil, err
	}
	staged, err := g.hasStaged(ctx)
	if err != nil {
		return nil, err
	}
	if !staged {
		return &models.CommitResult{Status: models.NothingToCommit}, nil
	}
	return g.commit(ctx, message)
}

func (g *Git) commit(ctx context.Context, message string, extra ...string) (*models.CommitResult, error) {
	args := append([]string{"commit", "--no-verify", "-q", "-m", message}, extra...)
	if _, err := g.run(ctx, args...); err != nil {
		return nil, err
	}
	commits, err := g.log(ctx, "-n", "1", "HEAD")
	if err != nil {
		return nil, err
	}
	if len(commits) == 0 {
		return nil, fmt.Errorf("vcs: commit not found after commit: %w", apperr.ErrUpstream)
	}
	c := commits[0]
	g.logger.Info("committed",
		slog.String("hash", c.ShortHash),
		slog.Int("files", len(c.Files)))
	return &models.CommitResult{Status: models.CommitCreated, Commit: &c}, nil
}

// hasStaged reports whether the index differs from HEAD (or from the empty
// tree before the first commit).
func (g *Git) hasStaged(ctx context.Context) (bool, error) {
	_, err := g.run(ctx, "diff", "--cached", "--quiet")
	if err == nil {
		return false, nil
	}
	if exitCode(err) == 1 {
		return true, nil
	}
	return false, err
}

// Log returns a page of history. A repository without commits yields an
// empty page.
func (g *Git) Log(ctx context.Context, page, perPage int) (*models.LogPage, error) {
	out := &models.LogPage{Commits: []models.Commit{}, Page: page, PerPage: perPage}
	raw, err := g.run(ctx, "rev-list", "--count", "HEAD")
	if err != nil {
		return out, nil
	}
	total, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("vcs: parse commit count: %w", apperr.ErrUpstream)
	}
	out.Total = total

	skip := (page - 1) * perPage
	if skip >= total {
		return out, nil
	}
	commits, err := g.log(ctx, "--skip="+strconv.Itoa(skip), "-n", strconv.Itoa(perPage), "HEAD")
	if err != nil {
		return nil, err
	}
	out.Commits = commits
	return out, nil
}

// FileLog returns up to limit commits touching path, following renames.
func (g *Git) FileLog(ctx context.Context, path string, limit int) ([]models.Commit, error) {
	if !g.hasHead(ctx) {
		return []models.Commit{}, nil
	}
	return g.log(ctx, "--follow", "-n", strconv.Itoa(limit), "HEAD", "--", path)
}

func (g *Git) log(ctx context.Context, args ...string) ([]models.Commit, error) {
	full := append([]string{"log", "--name-only", "--format=" + logFormat}, args...)
	raw, err := g.run(ctx, full...)
	if err != nil {
		return nil, err
	}
	return parseLog(string(raw)), nil
}

// Diff returns the changes a commit introduced relative to its first parent,
// or to the empty tree for a root commit.
func (g *Git) Diff(ctx context.Context, hash string) ([]models.FileDiff, error) {
	full, err := g.resolve(ctx, hash)
	if err != nil {
		return nil, err
	}
	raw, err := g.run(ctx, "rev-list", "--parents", "-n", "1", full)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(string(raw))
	var patch []byte
	if len(fields) > 1 {
		patch, err = g.run(ctx, "diff", "-M", fields[1], full)
	} else {
		patch, err = g.run(ctx, "diff-tree", "-p", "-M", "--root", "--no-commit-id", full)
	}
	if err != nil {
		return nil, err
	}
	return parseDiff(string(patch)), nil
}

// Restore checks out the tree of hash (or only file) and commits the result
// as "Restored to <short hash>". It always creates exactly one commit.
func (g *Git) Restore(ctx context.Context, hash, file string) (*models.CommitResult, error) {
	full, err := g.resolve(ctx, hash)
	if err != nil {
		return nil, err
	}
	target := "."
	if file != "" {
		if _, err := g.run(ctx, "cat-file", "-e", full+":"+file); err != nil {
			return nil, fmt.Errorf("vcs: %s not in %s: %w", file, shortHash(full), apperr.ErrNotFound)
		}
		target = file
	}
	if _, err := g.run(ctx, "checkout", full, "--", target); err != nil {
		return nil, err
	}
	if _, err := g.run(ctx, "add", "-A", "--", target); err != nil {
		return nil, err
	}
	return g.commit(ctx, "Restored to "+shortHash(full), "--allow-empty")
}

// Status lists uncommitted paths with their two-letter porcelain code.
func (g *Git) Status(ctx context.Context) ([]models.StatusEntry, error) {
	raw, err := g.run(ctx, "status", "--porcelain=v1", "-uall")
	if err != nil {
		return nil, err
	}
	return parseStatus(string(raw)), nil
}

// WorkingDiff diffs path against HEAD. Files unknown to HEAD are reported as
// entirely added.
func (g *Git) WorkingDiff(ctx context.Context, path string) (string, error) {
	if g.hasHead(ctx) {
		if _, err := g.run(ctx, "cat-file", "-e", "HEAD:"+path); err == nil {
			raw, err := g.run(ctx, "diff", "HEAD", "--", path)
			if err != nil {
				return "", err
			}
			return string(raw), nil
		}
	}
	data, err := os.ReadFile(filepath.Join(g.root, filepath.FromSlash(path)))
	if err != nil {
		return "", fmt.Errorf("vcs: working diff %s: %w", path, apperr.ErrNotFound)
	}
	return addedDiff(path, data), nil
}

func (g *Git) hasHead(ctx context.Context) bool {
	_, err := g.run(ctx, "rev-parse", "--verify", "-q", "HEAD")
	return err == nil
}

// resolve validates hash and expands it to the full commit id.
func (g *Git) resolve(ctx context.Context, hash string) (string, error) {
	if err := checkHash(hash); err != nil {
		return "", err
	}
	raw, err := g.run(ctx, "rev-parse", "--verify", "-q", hash+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("vcs: commit %s: %w", hash, apperr.ErrNotFound)
	}
	return strings.TrimSpace(string(raw)), nil
}

// gitError is a failed git invocation. It unwraps to apperr.ErrUpstream.
type gitError struct {
	args   []string
	code   int
	stderr string
}

func (e *gitError) Error() string {
	msg := fmt.Sprintf("vcs: git %s: exit %d", strings.Join(e.args, " "), e.code)
	if e.stderr != "" {
		msg += ": " + e.stderr
	}
	return msg
}

func (e *gitError) Unwrap() error { return apperr.ErrUpstream }

func exitCode(err error) int {
	var ge *gitError
	if errors.As(err, &ge) {
		return ge.code
	}
	return -1
}

// run executes git in the repository root and returns its stdout.
func (g *Git) run(ctx context.Context, args ...string) ([]byte, error) {
	full := append([]string{"-c", "core.quotePath=false", "-c", "commit.gpgsign=false"}, args...)
	cmd := exec.CommandContext(ctx, g.bin, full...)
	cmd.Dir = g.root
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "LC_ALL=C")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		code := -1
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			code = ee.ExitCode()
		}
		ge := &gitError{args: args, code: code, stderr: strings.TrimSpace(stderr.String())}
		g.logger.Debug("git command failed",
			slog.String("args", strings.Join(args, " ")),
			slog.Int("code", code),
			slog.String("stderr", ge.stderr))
		return nil, ge
	}
	return stdout.Bytes(), nil
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}
