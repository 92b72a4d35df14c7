package links

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/chronicle/internal/storage"
)

// Rewriter moves pages and updates the links that pointed at them.
type Rewriter struct {
	store  storage.Provider
	logger *slog.Logger
}

// NewRewriter creates a Rewriter over store.
func NewRewriter(store storage.Provider, logger *slog.Logger) *Rewriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rewriter{store: store, logger: logger}
}

// Move renames src to dst and rewrites references to src in every other
// document. It returns the documents that changed, sorted by path.
func (r *Rewriter) Move(ctx context.Context, src, dst string) ([]string, error) {
	src, dst = path.Clean(src), path.Clean(dst)
	if err := r.store.Move(src, dst); err != nil {
		return nil, err
	}

	docs, err := r.store.Documents()
	if err != nil {
		return nil, fmt.Errorf("links: move: %w", err)
	}
	rewritten := []string{}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return rewritten, err
		}
		if doc == dst {
			continue
		}
		changed, err := r.RewriteFile(doc, src, dst)
		if err != nil {
			r.logger.Warn("rewrite links failed",
				slog.String("path", doc),
				slog.String("error", err.Error()))
			continue
		}
		if changed {
			rewritten = append(rewritten, doc)
		}
	}
	r.logger.Info("page moved",
		slog.String("from", src),
		slog.String("to", dst),
		slog.Int("rewritten", len(rewritten)))
	return rewritten, nil
}

// RewriteFile replaces links in doc that reference oldTarget with links to
// newTarget. Both targets are vault-relative. It reports whether the file
// changed.
func (r *Rewriter) RewriteFile(doc, oldTarget, newTarget string) (bool, error) {
	data, err := r.store.Read(doc)
	if err != nil {
		return false, err
	}
	text := string(data)
	updated := rewriteLinks(text, doc, oldTarget, newTarget)
	if updated == text {
		return false, nil
	}
	if err := r.store.Write(doc, []byte(updated)); err != nil {
		return false, err
	}
	return true, nil
}

// rewriteLinks replaces the document-relative and root-relative spellings of
// oldTarget in text, each both as written and percent-encoded.
func rewriteLinks(text, doc, oldTarget, newTarget string) string {
	pairs := [][2]string{
		{LinkText(doc, oldTarget), LinkText(doc, newTarget)},
		{"/" + oldTarget, "/" + newTarget},
	}
	for _, p := range pairs {
		text = Replace(text, p[0], p[1])
		if esc := escapeLink(p[0]); esc != p[0] {
			text = Replace(text, esc, escapeLink(p[1]))
		}
	}
	return text
}

// escapeLink percent-encodes each segment of a slash-separated link.
func escapeLink(link string) string {
	parts := strings.Split(link, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

// LinkText returns the text a link in doc would use to reference target,
// relative to the document's directory. It falls back to the vault-relative
// target when no relative form can be computed.
func LinkText(doc, target string) string {
	dir := filepath.FromSlash(path.Dir(doc))
	rel, err := filepath.Rel(dir, filepath.FromSlash(target))
	if err != nil {
		return target
	}
	return filepath.ToSlash(rel)
}

// Replace substitutes every bare and ./-prefixed link to oldLink, with or
// without a #fragment, by the equivalent link to newLink.
func Replace(text, oldLink, newLink string) string {
	if oldLink == newLink {
		return text
	}
	return strings.NewReplacer(
		"](./"+oldLink+")", "](./"+newLink+")",
		"](./"+oldLink+"#", "](./"+newLink+"#",
		"]("+oldLink+")", "]("+newLink+")",
		"]("+oldLink+"#", "]("+newLink+"#",
	).Replace(text)
}
