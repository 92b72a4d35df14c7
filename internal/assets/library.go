package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/starford/chronicle/internal/apperr"
	"github.com/starford/chronicle/internal/checksum"
	"github.com/starford/chronicle/internal/models"
	"github.com/starford/chronicle/internal/storage"
)

// MaxSize caps a single uploaded image.
const MaxSize = 10 << 20 // 10 MB

// Library stores uploaded images under assets/images with content-derived
// names.
type Library struct {
	store  storage.Provider
	now    func() time.Time
	logger *slog.Logger
}

// NewLibrary creates a Library over store. A nil now uses time.Now.
func NewLibrary(store storage.Provider, now func() time.Time, logger *slog.Logger) *Library {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{store: store, now: now, logger: logger}
}

// Upload validates data and stores it as assets/images/YYYYMMDD-<hash>.<ext>,
// where hash is the first six hex digits of its SHA-256. Uploading the same
// bytes twice on one day yields the same asset.
func (l *Library) Upload(_ context.Context, data []byte, filename, contentType string) (*models.Asset, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("assets: empty file: %w", apperr.ErrInvalidQuery)
	}
	if len(data) > MaxSize {
		return nil, fmt.Errorf("assets: file too large: %d bytes (max %d): %w", len(data), MaxSize, apperr.ErrInvalidQuery)
	}
	ext := extensionFor(filename, contentType)
	if !allowedExtensions[ext] {
		return nil, fmt.Errorf("assets: unsupported file type %q: %w", ext, apperr.ErrInvalidQuery)
	}
	if err := validateMagicBytes(data, ext); err != nil {
		return nil, fmt.Errorf("assets: %v: %w", err, apperr.ErrInvalidQuery)
	}

	name := fmt.Sprintf("%s-%s%s", l.now().UTC().Format("20060102"), checksum.Short(data, 6), ext)
	rel := path.Join(storage.ImagesDir, name)
	if err := l.store.Write(rel, data); err != nil {
		return nil, err
	}
	l.logger.Info("asset uploaded",
		slog.String("path", rel),
		slog.Int("size", len(data)))
	return &models.Asset{Name: name, Path: rel, Size: int64(len(data)), ModTime: l.now()}, nil
}

// Index lists stored images with an accepted extension, sorted by name.
func (l *Library) Index(_ context.Context) ([]models.Asset, error) {
	dir, err := l.store.Resolve(storage.ImagesDir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.Asset{}, nil
		}
		return nil, fmt.Errorf("assets: index: %w", err)
	}
	out := []models.Asset{}
	for _, e := range entries {
		if !e.Type().IsRegular() || !Allowed(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, models.Asset{
			Name:    e.Name(),
			Path:    path.Join(storage.ImagesDir, e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return out, nil
}

// Open returns the absolute path of the named image for serving. The name
// must be a plain file name.
func (l *Library) Open(name string) (string, error) {
	if name == "" || name != path.Base(name) || strings.ContainsAny(name, `/\`) || name == ".." {
		return "", fmt.Errorf("assets: invalid name %q: %w", name, apperr.ErrInvalidPath)
	}
	abs, err := l.store.Resolve(path.Join(storage.ImagesDir, name))
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("assets: %s: %w", name, apperr.ErrNotFound)
	}
	return abs, nil
}
