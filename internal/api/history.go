package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/chronicle/internal/models"
)

// Commit handles POST /api/git/commit. Without files the whole vault is
// committed after asset garbage collection.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	var req CommitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, "commit", err)
		return
	}
	res, err := h.e.History.Commit(r.Context(), req.Message, req.Files)
	if err != nil {
		writeError(w, h.logger, "commit", err)
		return
	}
	status := http.StatusOK
	if res.Status == models.CommitCreated {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

// Log handles GET /api/git/log?page=&per_page=.
func (h *Handler) Log(w http.ResponseWriter, r *http.Request) {
	page, err := h.e.History.Log(r.Context(), queryInt(r, "page"), queryInt(r, "per_page"))
	if err != nil {
		writeError(w, h.logger, "git log", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Diff handles GET /api/git/diff/{hash}.
func (h *Handler) Diff(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	files, err := h.e.History.Diff(r.Context(), hash)
	if err != nil {
		writeError(w, h.logger, "git diff", err)
		return
	}
	writeJSON(w, http.StatusOK, DiffResponse{Hash: hash, Files: files})
}

// Restore handles POST /api/git/restore/{hash}. The optional body names a
// single file to restore.
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	var req RestoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, "git restore", err)
		return
	}
	res, err := h.e.History.Restore(r.Context(), chi.URLParam(r, "hash"), req.File)
	if err != nil {
		writeError(w, h.logger, "git restore", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Status handles GET /api/git/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	entries, err := h.e.History.Status(r.Context())
	if err != nil {
		writeError(w, h.logger, "git status", err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Entries: entries})
}

// FileLog handles GET /api/git/file-log/*?limit=.
func (h *Handler) FileLog(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	commits, err := h.e.History.FileLog(r.Context(), path, queryInt(r, "limit"))
	if err != nil {
		writeError(w, h.logger, "git file log", err)
		return
	}
	writeJSON(w, http.StatusOK, FileLogResponse{Path: path, Commits: commits})
}

// WorkingDiff handles GET /api/git/working-diff/*.
func (h *Handler) WorkingDiff(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	diff, err := h.e.History.WorkingDiff(r.Context(), path)
	if err != nil {
		writeError(w, h.logger, "git working diff", err)
		return
	}
	writeJSON(w, http.StatusOK, WorkingDiffResponse{Path: path, Diff: diff})
}
