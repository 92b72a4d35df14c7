// Package assets stores uploaded images and collects the ones no document
// references any more.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/chronicle/internal/links"
	"github.com/starford/chronicle/internal/models"
	"github.com/starford/chronicle/internal/storage"
)

// DefaultGrace is the minimum age of an unreferenced image before it may be
// collected.
const DefaultGrace = 5 * time.Minute

var (
	mdImageRE   = regexp.MustCompile(`!\[[^\]]*\]\(([^)]+)\)`)
	htmlImageRE = regexp.MustCompile(`(?i)<img\s[^>]*src=["']([^"']+)["']`)
)

// Collector is a mark-and-sweep garbage collector over assets/images.
type Collector struct {
	store  storage.Provider
	grace  time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithGrace overrides DefaultGrace.
func WithGrace(d time.Duration) CollectorOption {
	return func(c *Collector) { c.grace = d }
}

// WithClock sets the time source used for age checks.
func WithClock(now func() time.Time) CollectorOption {
	return func(c *Collector) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) CollectorOption {
	return func(c *Collector) { c.logger = l }
}

// NewCollector creates a Collector over store.
func NewCollector(store storage.Provider, opts ...CollectorOption) *Collector {
	c := &Collector{
		store:  store,
		grace:  DefaultGrace,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type candidate struct {
	name string
	abs  string
	size int64
}

// Preview reports the images Execute would delete without deleting them.
func (c *Collector) Preview(ctx context.Context) (*models.GCPreview, error) {
	cands, err := c.candidates(ctx)
	if err != nil {
		return nil, err
	}
	rep := &models.GCPreview{Candidates: []string{}}
	for _, cd := range cands {
		rep.Candidates = append(rep.Candidates, cd.name)
		rep.TotalBytes += cd.size
	}
	return rep, nil
}

// Execute deletes every candidate. A candidate that disappeared after the
// scan is skipped; other failures are recorded in the report.
func (c *Collector) Execute(ctx context.Context) (*models.GCReport, error) {
	cands, err := c.candidates(ctx)
	if err != nil {
		return nil, err
	}
	rep := c.remove(cands)
	c.logger.Info("gc finished",
		slog.Int("deleted", len(rep.Deleted)),
		slog.Int64("freed_bytes", rep.FreedBytes),
		slog.Int("failed", len(rep.Failed)))
	return rep, nil
}

func (c *Collector) remove(cands []candidate) *models.GCReport {
	rep := &models.GCReport{Deleted: []string{}}
	for _, cd := range cands {
		if err := os.Remove(cd.abs); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			c.logger.Warn("gc delete failed",
				slog.String("name", cd.name),
				slog.String("error", err.Error()))
			rep.Failed = append(rep.Failed, cd.name)
			continue
		}
		rep.Deleted = append(rep.Deleted, cd.name)
		rep.FreedBytes += cd.size
	}
	return rep
}

// Referenced returns the names of images referenced from any document,
// including references inside comments.
func (c *Collector) Referenced(ctx context.Context) (map[string]struct{}, error) {
	docs, err := c.store.Documents()
	if err != nil {
		return nil, fmt.Errorf("assets: mark: %w", err)
	}

	perDoc := make([][]string, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := c.store.Read(doc)
			if err != nil {
				c.logger.Debug("gc mark skipped document",
					slog.String("path", doc),
					slog.String("error", err.Error()))
				return nil
			}
			perDoc[i] = ImageRefs(doc, string(data))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	refs := map[string]struct{}{}
	for _, names := range perDoc {
		for _, n := range names {
			refs[n] = struct{}{}
		}
	}
	return refs, nil
}

// ImageRefs returns the names of images under assets/images referenced by
// text, a document located at doc.
func ImageRefs(doc, text string) []string {
	var out []string
	for _, re := range []*regexp.Regexp{mdImageRE, htmlImageRE} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if name, ok := imageName(doc, m[1]); ok {
				out = append(out, name)
			}
		}
	}
	return out
}

// imageName resolves target and accepts it only when it is a direct child of
// the images directory.
func imageName(doc, target string) (string, bool) {
	resolved, ok := links.Resolve(doc, target)
	if !ok || path.Dir(resolved) != storage.ImagesDir {
		return "", false
	}
	return path.Base(resolved), true
}

func (c *Collector) candidates(ctx context.Context) ([]candidate, error) {
	dir, err := c.store.Resolve(storage.ImagesDir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("assets: sweep: %w", err)
	}

	refs, err := c.Referenced(ctx)
	if err != nil {
		return nil, err
	}

	now := c.now()
	var out []candidate
	for _, e := range entries {
		if !e.Type().IsRegular() || storage.IsHidden(e.Name()) {
			continue
		}
		if _, used := refs[e.Name()]; used {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) < c.grace {
			continue
		}
		out = append(out, candidate{
			name: e.Name(),
			abs:  filepath.Join(dir, e.Name()),
			size: info.Size(),
		})
	}
	return out, nil
}
