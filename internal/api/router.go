package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/chronicle/internal/engine"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(e *engine.Engine, authEnabled bool, token string, sseHandler http.Handler, logger *slog.Logger) chi.Router {
	h := NewHandler(e, logger)
	ah := NewAssetHandler(e.Assets, logger)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents.
	r.Get("/notes", h.ListNotes)
	r.Get("/notes/*", h.GetNote)
	r.Put("/notes/*", h.SaveNote)
	r.Delete("/notes/*", h.DeleteNote)
	r.Get("/render/*", h.RenderNote)

	// Pages.
	r.Get("/tree", h.Tree)
	r.Post("/pages/create", h.CreatePage)
	r.Put("/pages/move", h.MovePage)
	r.Get("/templates/{type}", h.Template)

	// Images.
	r.Post("/assets/upload", ah.Upload)
	r.Get("/assets/index", ah.Index)
	r.Get("/assets/{filename}", ah.ServeFile)

	// Search.
	r.Get("/search", h.Search)

	// Maintenance.
	r.Get("/gc/preview", h.GCPreview)
	r.Post("/gc", h.GCRun)
	r.Get("/links/check", h.CheckLinks)

	// Daily reports.
	r.Post("/daily/today", h.DailyToday)
	r.Get("/daily/calendar", h.DailyCalendar)
	r.Get("/daily/months", h.DailyMonths)

	// History.
	r.Route("/git", func(r chi.Router) {
		r.Post("/commit", h.Commit)
		r.Get("/log", h.Log)
		r.Get("/diff/{hash}", h.Diff)
		r.Post("/restore/{hash}", h.Restore)
		r.Get("/status", h.Status)
		r.Get("/file-log/*", h.FileLog)
		r.Get("/working-diff/*", h.WorkingDiff)
	})

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
