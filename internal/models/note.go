// Package models defines the domain types for Chronicle.
package models

import "time"

// Note is a single vault document as returned to clients.
type Note struct {
	Path     string   `json:"path"`
	Title    string   `json:"title"`
	Type     string   `json:"type"`
	Created  string   `json:"created,omitempty"`
	Tags     []string `json:"tags"`
	Content  string   `json:"content"`
	Body     string   `json:"-"`
	Checksum string   `json:"checksum"`
}

// NoteMeta is a lightweight representation returned by list operations.
type NoteMeta struct {
	Path    string   `json:"path"`
	Title   string   `json:"title"`
	Type    string   `json:"type"`
	Created string   `json:"created,omitempty"`
	Tags    []string `json:"tags"`
}

// TreeNode is a directory or document in the page tree. Directories without
// an index document carry nil Title, Type and Path.
type TreeNode struct {
	Name     string      `json:"name"`
	Title    *string     `json:"title"`
	Type     *string     `json:"type"`
	Path     *string     `json:"path"`
	IsDir    bool        `json:"is_dir"`
	Children []*TreeNode `json:"children,omitempty"`
}

// PageResult is returned by page creation and moves.
type PageResult struct {
	Path      string   `json:"path"`
	Rewritten []string `json:"rewritten,omitempty"`
}

// Asset describes a stored image.
type Asset struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified"`
}

// GCPreview lists the images a garbage collection run would delete.
type GCPreview struct {
	Candidates []string `json:"candidates"`
	TotalBytes int64    `json:"total_bytes"`
}

// GCReport describes a completed garbage collection run.
type GCReport struct {
	Deleted    []string `json:"deleted"`
	FreedBytes int64    `json:"freed_bytes"`
	Failed     []string `json:"failed,omitempty"`
}

// BrokenLink is a relative link whose target does not exist.
type BrokenLink struct {
	File       string `json:"file"`
	Line       int    `json:"line"`
	Target     string `json:"target"`
	Suggestion string `json:"suggestion,omitempty"`
}
