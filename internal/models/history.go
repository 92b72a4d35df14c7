package models

// Commit statuses reported by CommitResult.
const (
	CommitCreated   = "committed"
	NothingToCommit = "nothing_to_commit"
)

// Commit is one entry of the repository history.
type Commit struct {
	Hash      string   `json:"hash"`
	ShortHash string   `json:"short_hash"`
	Author    string   `json:"author"`
	Email     string   `json:"email,omitempty"`
	Timestamp string   `json:"timestamp"`
	Message   string   `json:"message"`
	Files     []string `json:"files"`
}

// CommitResult is the outcome of a commit or restore.
type CommitResult struct {
	Status string  `json:"status"`
	Commit *Commit `json:"commit,omitempty"`
}

// LogPage is a page of history, newest first.
type LogPage struct {
	Commits []Commit `json:"commits"`
	Total   int      `json:"total"`
	Page    int      `json:"page"`
	PerPage int      `json:"per_page"`
}

// File change types reported in a FileDiff.
const (
	ChangeAdded    = "A"
	ChangeDeleted  = "D"
	ChangeModified = "M"
	ChangeRenamed  = "R"
)

// FileDiff is the change to one file within a commit.
type FileDiff struct {
	Path    string `json:"path"`
	OldPath string `json:"old_path,omitempty"`
	Change  string `json:"change"`
	Diff    string `json:"diff"`
}

// StatusEntry is one uncommitted path.
type StatusEntry struct {
	Code string `json:"code"`
	Path string `json:"path"`
}
