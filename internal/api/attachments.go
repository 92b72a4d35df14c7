package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/chronicle/internal/assets"
)

// maxUploadBytes bounds the multipart body; the image itself is limited to
// assets.MaxSize by the library.
const maxUploadBytes = assets.MaxSize + 1<<20

// AssetHandler serves and accepts images.
type AssetHandler struct {
	lib    *assets.Library
	logger *slog.Logger
}

// NewAssetHandler creates a handler over the image library.
func NewAssetHandler(lib *assets.Library, logger *slog.Logger) *AssetHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssetHandler{lib: lib, logger: logger}
}

// ServeFile handles GET /api/assets/{filename}.
func (h *AssetHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	abs, err := h.lib.Open(chi.URLParam(r, "filename"))
	if err != nil {
		writeError(w, h.logger, "serve asset", err)
		return
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeFile(w, r, abs)
}

// Index handles GET /api/assets/index.
func (h *AssetHandler) Index(w http.ResponseWriter, r *http.Request) {
	images, err := h.lib.Index(r.Context())
	if err != nil {
		writeError(w, h.logger, "asset index", err)
		return
	}
	writeJSON(w, http.StatusOK, AssetIndexResponse{Images: images})
}

// Upload handles POST /api/assets/upload (multipart/form-data, field "file").
func (h *AssetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	asset, err := h.lib.Upload(r.Context(), data, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, h.logger, "upload asset", err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}
