package models

// SearchHit is one matching line.
type SearchHit struct {
	Line    int    `json:"line"`
	Snippet string `json:"snippet"`
}

// SearchResult groups the hits of one document.
type SearchResult struct {
	Path    string      `json:"path"`
	Title   string      `json:"title"`
	Type    string      `json:"type"`
	Matches []SearchHit `json:"matches"`
}

// SearchPage is a paginated search response.
type SearchPage struct {
	Query   string         `json:"query"`
	Total   int            `json:"total"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
	Results []SearchResult `json:"results"`
}

// Daily creation statuses.
const (
	DailyCreated = "created"
	DailyExists  = "exists"
)

// DailyResult is returned by daily report creation.
type DailyResult struct {
	Path   string `json:"path"`
	Status string `json:"status"`
}

// CalendarEntry is one daily report within a month.
type CalendarEntry struct {
	Date  string `json:"date"`
	Path  string `json:"path"`
	Title string `json:"title"`
}
