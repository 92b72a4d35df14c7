// Package engine assembles the vault services over one sandboxed root.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/starford/chronicle/internal/assets"
	"github.com/starford/chronicle/internal/daily"
	"github.com/starford/chronicle/internal/links"
	"github.com/starford/chronicle/internal/notes"
	"github.com/starford/chronicle/internal/search"
	"github.com/starford/chronicle/internal/storage"
	"github.com/starford/chronicle/internal/tree"
	"github.com/starford/chronicle/internal/vcs"
)

// Config holds the engine settings.
type Config struct {
	VaultPath string

	// GCGrace is the minimum age of a collectable image; zero means
	// assets.DefaultGrace.
	GCGrace time.Duration

	GitEnabled bool
	GitBinary  string
	GitName    string
	GitEmail   string

	DoneHeading     string
	TomorrowHeading string

	SearchPerPage    int
	SearchMaxPerPage int

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Engine holds the services of one vault. It keeps no state besides the
// file system and the repository.
type Engine struct {
	Store   *storage.FS
	Notes   *notes.Service
	Tree    *tree.Builder
	Links   *links.Checker
	GC      *assets.Collector
	Assets  *assets.Library
	Search  *search.Engine
	Daily   *daily.Service
	History *vcs.Service
}

// New creates the vault directory if needed and builds every service. When
// history is enabled the repository is opened (and initialized) here.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if err := os.MkdirAll(cfg.VaultPath, 0o755); err != nil {
		return nil, fmt.Errorf("engine: create vault dir: %w", err)
	}
	store, err := storage.NewFS(cfg.VaultPath)
	if err != nil {
		return nil, fmt.Errorf("engine: init storage: %w", err)
	}

	dailySvc := daily.NewService(store,
		daily.WithHeadings(cfg.DoneHeading, cfg.TomorrowHeading),
		daily.WithClock(now),
		daily.WithLogger(logger))
	done, tomorrow := dailySvc.Headings()

	rewriter := links.NewRewriter(store, logger)
	gcOpts := []assets.CollectorOption{assets.WithClock(now), assets.WithLogger(logger)}
	if cfg.GCGrace > 0 {
		gcOpts = append(gcOpts, assets.WithGrace(cfg.GCGrace))
	}
	gc := assets.NewCollector(store, gcOpts...)

	var repo vcs.Repository = vcs.Unavailable{}
	if cfg.GitEnabled {
		g, err := vcs.Open(ctx, store.Root(),
			vcs.WithBinary(cfg.GitBinary),
			vcs.WithIdentity(cfg.GitName, cfg.GitEmail),
			vcs.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("engine: open repository: %w", err)
		}
		repo = g
	}

	e := &Engine{
		Store: store,
		Notes: notes.NewService(store, rewriter,
			notes.WithClock(now),
			notes.WithLogger(logger),
			notes.WithTemplates(notes.DefaultTemplates(done, tomorrow))),
		Tree:    tree.NewBuilder(store, logger),
		Links:   links.NewChecker(store, logger),
		GC:      gc,
		Assets:  assets.NewLibrary(store, now, logger),
		Search:  search.NewEngine(store, cfg.SearchPerPage, cfg.SearchMaxPerPage, logger),
		Daily:   dailySvc,
		History: vcs.NewService(repo, store, gc, logger),
	}
	logger.Info("engine ready",
		slog.String("vault", store.Root()),
		slog.Bool("git", cfg.GitEnabled))
	return e, nil
}
