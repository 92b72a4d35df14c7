package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/chronicle/internal/models"
)

// SaveNoteRequest is the request body for PUT /notes/*.
type SaveNoteRequest struct {
	Content *string `json:"content" example:"# Hello\nWorld"`
}

// Validate requires the content field to be present; it may be empty.
func (r *SaveNoteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Content, validation.NotNil),
	)
}

// CreatePageRequest is the request body for POST /pages/create.
type CreatePageRequest struct {
	Parent string `json:"parent" example:"projects"`
	Title  string `json:"title" example:"Launch plan"`
	Type   string `json:"type" example:"note"`
}

// Validate validates the request.
func (r *CreatePageRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Type, validation.Length(0, 64)),
	)
}

// MovePageRequest is the request body for PUT /pages/move.
type MovePageRequest struct {
	Source      string `json:"source" example:"old/page.md"`
	Destination string `json:"destination" example:"new/page.md"`
}

// Validate validates the request.
func (r *MovePageRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Source, validation.Required),
		validation.Field(&r.Destination, validation.Required),
	)
}

// DailyRequest is the optional request body for POST /daily/today.
type DailyRequest struct {
	Date string `json:"date,omitempty" example:"2024-03-02"`
}

// Validate accepts any date; unparseable dates mean today.
func (r *DailyRequest) Validate() error { return nil }

// CommitRequest is the request body for POST /git/commit.
type CommitRequest struct {
	Message string   `json:"message" example:"Weekly notes"`
	Files   []string `json:"files,omitempty"`
}

// Validate validates the request.
func (r *CommitRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Message, validation.Required),
		validation.Field(&r.Files, validation.Each(validation.Required)),
	)
}

// RestoreRequest is the optional request body for POST /git/restore/{hash}.
type RestoreRequest struct {
	File string `json:"file,omitempty" example:"notes/plan.md"`
}

// Validate validates the request.
func (r *RestoreRequest) Validate() error { return nil }

// calendarParams are the query parameters of GET /daily/calendar.
type calendarParams struct {
	Year  int
	Month int
}

func (p *calendarParams) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Year, validation.Required, validation.Min(1), validation.Max(9999)),
		validation.Field(&p.Month, validation.Required, validation.Min(1), validation.Max(12)),
	)
}

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []models.NoteMeta `json:"notes"`
	Total int               `json:"total"`
}

// RenderResponse is the HTML preview of a document.
type RenderResponse struct {
	Path string `json:"path"`
	HTML string `json:"html"`
}

// TemplateResponse is a rendered page template.
type TemplateResponse struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// AssetIndexResponse lists stored images.
type AssetIndexResponse struct {
	Images []models.Asset `json:"images"`
}

// LinkCheckResponse lists broken links.
type LinkCheckResponse struct {
	Broken []models.BrokenLink `json:"broken"`
}

// CalendarResponse lists the daily reports of a month.
type CalendarResponse struct {
	Year    int                    `json:"year"`
	Month   int                    `json:"month"`
	Entries []models.CalendarEntry `json:"entries"`
}

// MonthsResponse lists months holding daily reports.
type MonthsResponse struct {
	Months []string `json:"months"`
}

// DiffResponse is the per-file diff of a commit.
type DiffResponse struct {
	Hash  string            `json:"hash"`
	Files []models.FileDiff `json:"files"`
}

// StatusResponse lists uncommitted paths.
type StatusResponse struct {
	Entries []models.StatusEntry `json:"entries"`
}

// FileLogResponse is the history of one file.
type FileLogResponse struct {
	Path    string          `json:"path"`
	Commits []models.Commit `json:"commits"`
}

// WorkingDiffResponse is the uncommitted diff of one file.
type WorkingDiffResponse struct {
	Path string `json:"path"`
	Diff string `json:"diff"`
}
