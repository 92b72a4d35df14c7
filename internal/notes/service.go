// Package notes implements document CRUD, page creation and moves, and
// markdown preview rendering.
package notes

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/starford/chronicle/internal/apperr"
	"github.com/starford/chronicle/internal/checksum"
	"github.com/starford/chronicle/internal/daily"
	"github.com/starford/chronicle/internal/frontmatter"
	"github.com/starford/chronicle/internal/links"
	"github.com/starford/chronicle/internal/models"
	"github.com/starford/chronicle/internal/storage"
)

// Service coordinates document storage, templates and link rewriting.
type Service struct {
	store     storage.Provider
	rewriter  *links.Rewriter
	templates map[string]Template
	now       func() time.Time
	md        goldmark.Markdown
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source for created timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithTemplates replaces the page templates.
func WithTemplates(t map[string]Template) Option {
	return func(s *Service) { s.templates = t }
}

// NewService creates a note service.
func NewService(store storage.Provider, rewriter *links.Rewriter, opts ...Option) *Service {
	s := &Service{
		store:     store,
		rewriter:  rewriter,
		templates: DefaultTemplates(daily.DefaultDoneHeading, daily.DefaultTomorrowHeading),
		now:       time.Now,
		md:        goldmark.New(goldmark.WithExtensions(extension.GFM)),
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// List returns metadata for every document, ordered by path. Documents whose
// metadata cannot be parsed are skipped.
func (s *Service) List(ctx context.Context) ([]models.NoteMeta, error) {
	docs, err := s.store.Documents()
	if err != nil {
		return nil, fmt.Errorf("notes: list: %w", err)
	}
	items := make([]models.NoteMeta, 0, len(docs))
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := s.store.Read(doc)
		if err != nil {
			continue
		}
		fields, _, err := frontmatter.Parse(data)
		if err != nil {
			s.logger.Debug("list skipped document",
				slog.String("path", doc),
				slog.String("error", err.Error()))
			continue
		}
		m := frontmatter.MetaOf(fields, storage.Stem(doc))
		items = append(items, models.NoteMeta{
			Path:    doc,
			Title:   m.Title,
			Type:    m.Type,
			Created: m.Created,
			Tags:    m.Tags,
		})
	}
	return items, nil
}

// Get reads a document with its metadata and checksum.
func (s *Service) Get(_ context.Context, p string) (*models.Note, error) {
	data, err := s.store.Read(p)
	if err != nil {
		return nil, err
	}
	return buildNote(p, data), nil
}

// Save writes content to p, creating it if needed. A non-empty ifMatch must
// equal the checksum of the current content, otherwise ErrConflict is
// returned.
func (s *Service) Save(_ context.Context, p string, content []byte, ifMatch string) (*models.Note, error) {
	if err := validDocPath(p); err != nil {
		return nil, err
	}
	if ifMatch != "" {
		existing, err := s.store.Read(p)
		if err != nil {
			return nil, err
		}
		if ifMatch != checksum.Sum(existing) {
			return nil, fmt.Errorf("notes: save %s: stale checksum: %w", p, apperr.ErrConflict)
		}
	}
	if err := s.store.Write(p, content); err != nil {
		return nil, err
	}
	s.logger.Info("note saved", slog.String("path", p))
	return buildNote(p, content), nil
}

// Delete removes a document and prunes directories it leaves empty. Images
// are only removed by garbage collection.
func (s *Service) Delete(_ context.Context, p string) error {
	if err := validDocPath(p); err != nil {
		return err
	}
	if err := s.store.Delete(p); err != nil {
		return err
	}
	s.logger.Info("note deleted", slog.String("path", p))
	return nil
}

// CreatePage creates a page titled title from the template of the given type
// next to parent, which may be a document or a directory ("" is the vault
// root). The file name is derived from the title.
func (s *Service) CreatePage(_ context.Context, parent, title, typ string) (*models.PageResult, error) {
	dir, err := s.parentDir(parent)
	if err != nil {
		return nil, err
	}
	tmpl, ok := s.templates[typ]
	if !ok {
		tmpl = s.templates[frontmatter.DefaultType]
	}
	rel := path.Join(dir, Slugify(title)+storage.DocExt)
	if s.store.Exists(rel) {
		return nil, fmt.Errorf("notes: create %s: %w", rel, apperr.ErrConflict)
	}
	if err := s.store.Write(rel, tmpl.Render(title, frontmatter.Timestamp(s.now()))); err != nil {
		return nil, err
	}
	s.logger.Info("page created", slog.String("path", rel), slog.String("type", tmpl.Type))
	return &models.PageResult{Path: rel}, nil
}

func (s *Service) parentDir(parent string) (string, error) {
	parent = strings.Trim(parent, "/")
	if parent == "" {
		return "", nil
	}
	abs, err := s.store.Resolve(parent)
	if err != nil {
		return "", err
	}
	rel, err := s.store.Rel(abs)
	if err != nil {
		return "", err
	}
	switch {
	case isDir(abs):
		return rel, nil
	case s.store.Exists(rel):
		return path.Dir(rel), nil
	default:
		return "", fmt.Errorf("notes: parent %s: %w", parent, apperr.ErrNotFound)
	}
}

// Template returns the rendered template for typ with an empty title.
func (s *Service) Template(typ string) (string, error) {
	tmpl, ok := s.templates[typ]
	if !ok {
		return "", fmt.Errorf("notes: template %q: %w", typ, apperr.ErrNotFound)
	}
	return string(tmpl.Render("", frontmatter.Timestamp(s.now()))), nil
}

// Move renames a page and rewrites links that referenced it.
func (s *Service) Move(ctx context.Context, src, dst string) (*models.PageResult, error) {
	if strings.TrimSpace(dst) == "" {
		return nil, fmt.Errorf("notes: move: empty destination: %w", apperr.ErrInvalidPath)
	}
	for _, p := range []string{src, dst} {
		if err := validDocPath(p); err != nil {
			return nil, err
		}
	}
	rewritten, err := s.rewriter.Move(ctx, src, dst)
	if err != nil {
		return nil, err
	}
	return &models.PageResult{Path: path.Clean(dst), Rewritten: rewritten}, nil
}

// Render converts a document body to HTML.
func (s *Service) Render(_ context.Context, p string) (string, error) {
	data, err := s.store.Read(p)
	if err != nil {
		return "", err
	}
	_, body := frontmatter.Decode(data)
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("notes: render %s: %w", p, err)
	}
	return buf.String(), nil
}

func buildNote(p string, data []byte) *models.Note {
	fields, body := frontmatter.Decode(data)
	m := frontmatter.MetaOf(fields, storage.Stem(p))
	return &models.Note{
		Path:     p,
		Title:    m.Title,
		Type:     m.Type,
		Created:  m.Created,
		Tags:     m.Tags,
		Content:  string(data),
		Body:     body,
		Checksum: checksum.Sum(data),
	}
}

// validDocPath accepts markdown paths outside hidden directories and the
// assets tree.
func validDocPath(p string) error {
	if !strings.HasSuffix(p, storage.DocExt) {
		return fmt.Errorf("notes: %q is not a markdown document: %w", p, apperr.ErrInvalidPath)
	}
	if storage.InAssets(path.Clean(strings.TrimPrefix(p, "/"))) {
		return fmt.Errorf("notes: %q is inside the assets tree: %w", p, apperr.ErrInvalidPath)
	}
	for _, part := range strings.Split(p, "/") {
		if storage.IsHidden(part) && part != "." && part != ".." {
			return fmt.Errorf("notes: %q is inside a hidden directory: %w", p, apperr.ErrInvalidPath)
		}
	}
	return nil
}

func isDir(abs string) bool {
	info, err := os.Stat(abs)
	return err == nil && info.IsDir()
}
