package links

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/chronicle/internal/models"
	"github.com/starford/chronicle/internal/storage"
)

// suggestThreshold is the score a candidate must exceed to be suggested.
const suggestThreshold = 0.5

// Checker detects links whose relative targets do not exist.
type Checker struct {
	store  storage.Provider
	logger *slog.Logger
}

// NewChecker creates a Checker over store.
func NewChecker(store storage.Provider, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{store: store, logger: logger}
}

// Check scans every document outside the assets tree and returns its broken
// links ordered by file and line. Unreadable documents are skipped.
func (c *Checker) Check(ctx context.Context) ([]models.BrokenLink, error) {
	docs, err := c.store.Documents()
	if err != nil {
		return nil, fmt.Errorf("links: check: %w", err)
	}

	perDoc := make([][]models.BrokenLink, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, doc := range docs {
		if storage.InAssets(doc) {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perDoc[i] = c.checkDocument(doc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	broken := []models.BrokenLink{}
	for _, items := range perDoc {
		broken = append(broken, items...)
	}
	if len(broken) == 0 {
		return broken, nil
	}

	candidates := c.candidates(docs)
	cache := map[string]string{}
	for i := range broken {
		target := broken[i].Target
		s, ok := cache[target]
		if !ok {
			s = Suggest(target, candidates)
			cache[target] = s
		}
		broken[i].Suggestion = s
	}
	return broken, nil
}

func (c *Checker) checkDocument(doc string) []models.BrokenLink {
	data, err := c.store.Read(doc)
	if err != nil {
		c.logger.Debug("link check skipped document",
			slog.String("path", doc),
			slog.String("error", err.Error()))
		return nil
	}
	var out []models.BrokenLink
	for i, line := range strings.Split(string(data), "\n") {
		for _, m := range linkRE.FindAllStringSubmatch(line, -1) {
			target := strings.TrimSpace(m[1])
			resolved, ok := Resolve(doc, target)
			if !ok {
				continue
			}
			if c.store.Exists(resolved) {
				continue
			}
			out = append(out, models.BrokenLink{File: doc, Line: i + 1, Target: target})
		}
	}
	return out
}

// candidates lists every document followed by every image, each group in
// sorted order.
func (c *Checker) candidates(docs []string) []string {
	out := append([]string(nil), docs...)
	dir, err := c.store.Resolve(storage.ImagesDir)
	if err != nil {
		return out
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return out
	}
	for _, e := range entries {
		if e.Type().IsRegular() {
			out = append(out, path.Join(storage.ImagesDir, e.Name()))
		}
	}
	return out
}

// Suggest returns the candidate whose lower-cased stem shares the largest
// fraction of distinct characters with the target's stem, provided the score
// exceeds one half. The earliest candidate wins ties. It returns "" when no
// candidate qualifies.
func Suggest(target string, candidates []string) string {
	stem := strings.ToLower(storage.Stem(Clean(target)))
	if stem == "" {
		return ""
	}
	want := runeSet(stem)
	wantLen := len([]rune(stem))

	best, bestScore := "", 0.0
	for _, cand := range candidates {
		cs := strings.ToLower(storage.Stem(cand))
		common := 0
		for r := range runeSet(cs) {
			if _, ok := want[r]; ok {
				common++
			}
		}
		score := float64(common) / float64(max(wantLen, len([]rune(cs)), 1))
		if score > bestScore && score > suggestThreshold {
			best, bestScore = cand, score
		}
	}
	return best
}

func runeSet(s string) map[rune]struct{} {
	set := make(map[rune]struct{}, len(s))
	for _, r := range s {
		set[r] = struct{}{}
	}
	return set
}
