package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/chronicle/internal/engine"
	"github.com/starford/chronicle/internal/models"
	"github.com/starford/chronicle/internal/search"
)

// Handler holds API route handlers.
type Handler struct {
	e      *engine.Engine
	logger *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(e *engine.Engine, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{e: e, logger: logger}
}

// wildcardPath extracts the vault path captured by a trailing "*" route.
// Supports encoded slashes from OpenAPI clients (e.g. topics%2Fnote.md).
func wildcardPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

func queryBool(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return b
}

// ListNotes handles GET /api/notes.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	items, err := h.e.Notes.List(r.Context())
	if err != nil {
		writeError(w, h.logger, "list notes", err)
		return
	}
	if items == nil {
		items = []models.NoteMeta{}
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: len(items)})
}

// GetNote handles GET /api/notes/*.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	note, err := h.e.Notes.Get(r.Context(), path)
	if err != nil {
		writeError(w, h.logger, "get note", err)
		return
	}
	w.Header().Set("ETag", `"`+note.Checksum+`"`)
	writeJSON(w, http.StatusOK, note)
}

// SaveNote handles PUT /api/notes/*. An If-Match header holding the current
// checksum turns the write into a compare-and-swap.
func (h *Handler) SaveNote(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req SaveNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, "save note", err)
		return
	}
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	note, err := h.e.Notes.Save(r.Context(), path, []byte(*req.Content), ifMatch)
	if err != nil {
		writeError(w, h.logger, "save note", err)
		return
	}
	w.Header().Set("ETag", `"`+note.Checksum+`"`)
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/*.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.e.Notes.Delete(r.Context(), path); err != nil {
		writeError(w, h.logger, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RenderNote handles GET /api/render/*.
func (h *Handler) RenderNote(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	html, err := h.e.Notes.Render(r.Context(), path)
	if err != nil {
		writeError(w, h.logger, "render note", err)
		return
	}
	writeJSON(w, http.StatusOK, RenderResponse{Path: path, HTML: html})
}

// Tree handles GET /api/tree.
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	root, err := h.e.Tree.Build(r.Context())
	if err != nil {
		writeError(w, h.logger, "build tree", err)
		return
	}
	writeJSON(w, http.StatusOK, root)
}

// CreatePage handles POST /api/pages/create.
func (h *Handler) CreatePage(w http.ResponseWriter, r *http.Request) {
	var req CreatePageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, "create page", err)
		return
	}
	res, err := h.e.Notes.CreatePage(r.Context(), req.Parent, req.Title, req.Type)
	if err != nil {
		writeError(w, h.logger, "create page", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// MovePage handles PUT /api/pages/move.
func (h *Handler) MovePage(w http.ResponseWriter, r *http.Request) {
	var req MovePageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, "move page", err)
		return
	}
	res, err := h.e.Notes.Move(r.Context(), req.Source, req.Destination)
	if err != nil {
		writeError(w, h.logger, "move page", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Template handles GET /api/templates/{type}.
func (h *Handler) Template(w http.ResponseWriter, r *http.Request) {
	typ := chi.URLParam(r, "type")
	content, err := h.e.Notes.Template(typ)
	if err != nil {
		writeError(w, h.logger, "template", err)
		return
	}
	writeJSON(w, http.StatusOK, TemplateResponse{Type: typ, Content: content})
}

// Search handles GET /api/search.
//
// Query parameters: q (required), regex, case, type, path, page, per_page.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("q") == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	page, err := h.e.Search.Search(r.Context(), search.Query{
		Q:             q.Get("q"),
		Regex:         queryBool(r, "regex"),
		CaseSensitive: queryBool(r, "case"),
		Type:          q.Get("type"),
		Path:          q.Get("path"),
		Page:          queryInt(r, "page"),
		PerPage:       queryInt(r, "per_page"),
	})
	if err != nil {
		writeError(w, h.logger, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// DailyToday handles POST /api/daily/today.
func (h *Handler) DailyToday(w http.ResponseWriter, r *http.Request) {
	var req DailyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, "daily today", err)
		return
	}
	res, err := h.e.Daily.CreateToday(r.Context(), req.Date)
	if err != nil {
		writeError(w, h.logger, "daily today", err)
		return
	}
	status := http.StatusOK
	if res.Status == models.DailyCreated {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

// DailyCalendar handles GET /api/daily/calendar?year=&month=.
func (h *Handler) DailyCalendar(w http.ResponseWriter, r *http.Request) {
	p := calendarParams{Year: queryInt(r, "year"), Month: queryInt(r, "month")}
	if err := p.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	entries, err := h.e.Daily.Calendar(r.Context(), p.Year, p.Month)
	if err != nil {
		writeError(w, h.logger, "daily calendar", err)
		return
	}
	writeJSON(w, http.StatusOK, CalendarResponse{Year: p.Year, Month: p.Month, Entries: entries})
}

// DailyMonths handles GET /api/daily/months?year=.
func (h *Handler) DailyMonths(w http.ResponseWriter, r *http.Request) {
	months, err := h.e.Daily.Months(r.Context(), queryInt(r, "year"))
	if err != nil {
		writeError(w, h.logger, "daily months", err)
		return
	}
	writeJSON(w, http.StatusOK, MonthsResponse{Months: months})
}

// GCPreview handles GET /api/gc/preview.
func (h *Handler) GCPreview(w http.ResponseWriter, r *http.Request) {
	rep, err := h.e.GC.Preview(r.Context())
	if err != nil {
		writeError(w, h.logger, "gc preview", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// GCRun handles POST /api/gc.
func (h *Handler) GCRun(w http.ResponseWriter, r *http.Request) {
	rep, err := h.e.GC.Execute(r.Context())
	if err != nil {
		writeError(w, h.logger, "gc", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// CheckLinks handles GET /api/links/check.
func (h *Handler) CheckLinks(w http.ResponseWriter, r *http.Request) {
	broken, err := h.e.Links.Check(r.Context())
	if err != nil {
		writeError(w, h.logger, "check links", err)
		return
	}
	if broken == nil {
		broken = []models.BrokenLink{}
	}
	writeJSON(w, http.StatusOK, LinkCheckResponse{Broken: broken})
}
