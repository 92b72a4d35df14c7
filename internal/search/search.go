// Package search implements a linear full-text scan over vault documents.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/chronicle/internal/apperr"
	"github.com/starford/chronicle/internal/frontmatter"
	"github.com/starford/chronicle/internal/models"
	"github.com/starford/chronicle/internal/storage"
)

// Pagination defaults.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// snippetRadius is the number of characters kept on each side of a match.
const snippetRadius = 30

// Query describes one search request.
type Query struct {
	Q             string
	Regex         bool
	CaseSensitive bool
	Type          string
	Path          string
	Page          int
	PerPage       int
}

// Engine scans documents on every query; it keeps no index.
type Engine struct {
	store          storage.Provider
	defaultPerPage int
	maxPerPage     int
	logger         *slog.Logger
}

// NewEngine creates a search engine. Non-positive page sizes fall back to
// DefaultPerPage and MaxPerPage.
func NewEngine(store storage.Provider, defaultPerPage, maxPerPage int, logger *slog.Logger) *Engine {
	if maxPerPage <= 0 {
		maxPerPage = MaxPerPage
	}
	if defaultPerPage <= 0 || defaultPerPage > maxPerPage {
		defaultPerPage = min(DefaultPerPage, maxPerPage)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, defaultPerPage: defaultPerPage, maxPerPage: maxPerPage, logger: logger}
}

// Compile builds the matcher for q. Literal queries are quoted; matching is
// case-insensitive unless caseSensitive is set.
func Compile(q string, regex, caseSensitive bool) (*regexp.Regexp, error) {
	if q == "" {
		return nil, fmt.Errorf("search: empty query: %w", apperr.ErrInvalidQuery)
	}
	expr := q
	if !regex {
		expr = regexp.QuoteMeta(q)
	}
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("search: invalid pattern: %v: %w", err, apperr.ErrInvalidQuery)
	}
	return re, nil
}

// Search runs q over every document outside the assets tree. Results are
// ranked by descending hit count, then path, and paginated.
func (e *Engine) Search(ctx context.Context, q Query) (*models.SearchPage, error) {
	re, err := Compile(q.Q, q.Regex, q.CaseSensitive)
	if err != nil {
		return nil, err
	}
	page := max(q.Page, 1)
	perPage := q.PerPage
	if perPage <= 0 {
		perPage = e.defaultPerPage
	}
	perPage = min(perPage, e.maxPerPage)

	docs, err := e.store.Documents()
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	found := make([]*models.SearchResult, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, doc := range docs {
		if storage.InAssets(doc) || (q.Path != "" && !strings.HasPrefix(doc, q.Path)) {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			found[i] = e.scan(doc, re, q.Type)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := []models.SearchResult{}
	for _, r := range found {
		if r != nil {
			results = append(results, *r)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		if len(results[i].Matches) != len(results[j].Matches) {
			return len(results[i].Matches) > len(results[j].Matches)
		}
		return results[i].Path < results[j].Path
	})

	out := &models.SearchPage{
		Query:   q.Q,
		Total:   len(results),
		Page:    page,
		PerPage: perPage,
		Results: []models.SearchResult{},
	}
	start := (page - 1) * perPage
	if start < len(results) {
		out.Results = results[start:min(start+perPage, len(results))]
	}
	return out, nil
}

// scan returns nil when doc is unreadable, filtered out by type, or has no
// matching line.
func (e *Engine) scan(doc string, re *regexp.Regexp, typ string) *models.SearchResult {
	data, err := e.store.Read(doc)
	if err != nil {
		e.logger.Debug("search skipped document",
			slog.String("path", doc),
			slog.String("error", err.Error()))
		return nil
	}
	text := string(data)
	fields, _ := frontmatter.Decode(data)
	meta := frontmatter.MetaOf(fields, storage.Stem(doc))
	if typ != "" && meta.Type != typ {
		return nil
	}

	lines := strings.Split(text, "\n")
	var hits []models.SearchHit
	for i := frontmatter.BodyStart(lines); i < len(lines); i++ {
		loc := re.FindStringIndex(lines[i])
		if loc == nil {
			continue
		}
		hits = append(hits, models.SearchHit{Line: i + 1, Snippet: Snippet(lines[i], loc[0], loc[1])})
	}
	if len(hits) == 0 {
		return nil
	}
	return &models.SearchResult{Path: doc, Title: meta.Title, Type: meta.Type, Matches: hits}
}

// Snippet highlights line[start:end] with ** markers and keeps up to
// snippetRadius characters of context on each side, marking truncation with
// an ellipsis. start and end are byte offsets.
func Snippet(line string, start, end int) string {
	before := []rune(line[:start])
	after := []rune(line[end:])

	var b strings.Builder
	if len(before) > snippetRadius {
		b.WriteString("...")
		before = before[len(before)-snippetRadius:]
	}
	b.WriteString(string(before))
	b.WriteString("**")
	b.WriteString(line[start:end])
	b.WriteString("**")
	if len(after) > snippetRadius {
		b.WriteString(string(after[:snippetRadius]))
		b.WriteString("...")
	} else {
		b.WriteString(string(after))
	}
	return b.String()
}
