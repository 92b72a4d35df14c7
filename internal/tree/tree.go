// Package tree materializes the vault directory structure as a page tree.
package tree

import (
	"context"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/starford/chronicle/internal/frontmatter"
	"github.com/starford/chronicle/internal/models"
	"github.com/starford/chronicle/internal/storage"
)

// MaxDepth bounds directory recursion.
const MaxDepth = 64

// RootName names the synthetic root node.
const RootName = "vault"

// Builder builds page trees over a vault.
type Builder struct {
	store  storage.Provider
	logger *slog.Logger
}

// NewBuilder creates a Builder over store.
func NewBuilder(store storage.Provider, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{store: store, logger: logger}
}

// Build returns the root node. Directories come before documents and each
// group is ordered by name. Hidden entries, the top-level assets directory
// and symlinked directories are skipped.
func (b *Builder) Build(ctx context.Context) (*models.TreeNode, error) {
	root := &models.TreeNode{Name: RootName, IsDir: true}
	children, err := b.children(ctx, "", 0)
	if err != nil {
		return nil, err
	}
	root.Children = children
	return root, nil
}

func (b *Builder) children(ctx context.Context, rel string, depth int) ([]*models.TreeNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []*models.TreeNode{}
	if depth >= MaxDepth {
		b.logger.Warn("tree depth limit reached", slog.String("path", rel))
		return out, nil
	}

	abs, err := b.store.Resolve(rel)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		if rel == "" {
			return nil, err
		}
		b.logger.Debug("tree skipped directory",
			slog.String("path", rel),
			slog.String("error", err.Error()))
		return out, nil
	}
	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := entries[i].IsDir(), entries[j].IsDir()
		if di != dj {
			return di
		}
		return entries[i].Name() < entries[j].Name()
	})

	for _, e := range entries {
		name := e.Name()
		if storage.IsHidden(name) || (rel == "" && name == storage.AssetsDir) {
			continue
		}
		child := path.Join(rel, name)
		switch {
		case e.IsDir():
			node, err := b.directory(ctx, child, name, depth)
			if err != nil {
				return nil, err
			}
			out = append(out, node)
		case e.Type().IsRegular() && strings.HasSuffix(name, storage.DocExt) && name != storage.IndexName:
			out = append(out, b.document(child))
		}
	}
	return out, nil
}

func (b *Builder) directory(ctx context.Context, rel, name string, depth int) (*models.TreeNode, error) {
	node := &models.TreeNode{Name: name, IsDir: true}
	index := path.Join(rel, storage.IndexName)
	if data, err := b.store.Read(index); err == nil {
		fields, _ := frontmatter.Decode(data)
		meta := frontmatter.MetaOf(fields, name)
		node.Title = &meta.Title
		if t, ok := fields["type"]; ok && t != nil {
			node.Type = &meta.Type
		}
		node.Path = &index
	}
	children, err := b.children(ctx, rel, depth+1)
	if err != nil {
		return nil, err
	}
	node.Children = children
	return node, nil
}

func (b *Builder) document(rel string) *models.TreeNode {
	var fields map[string]any
	if data, err := b.store.Read(rel); err == nil {
		fields, _ = frontmatter.Decode(data)
	}
	meta := frontmatter.MetaOf(fields, storage.Stem(rel))
	return &models.TreeNode{
		Name:  path.Base(rel),
		Title: &meta.Title,
		Type:  &meta.Type,
		Path:  &rel,
	}
}
