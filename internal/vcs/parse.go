package vcs

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/starford/chronicle/internal/models"
)

// BinaryDiff replaces the patch text of binary files.
const BinaryDiff = "[binary file]"

const (
	recordSep = "\x1e"
	fieldSep  = "\x1f"
)

// logFormat emits one record per commit: hash, author, email, committer
// date, raw message, then the changed file names.
const logFormat = "%x1e%H%x1f%an%x1f%ae%x1f%cI%x1f%B%x1f"

func parseLog(raw string) []models.Commit {
	out := []models.Commit{}
	for _, rec := range strings.Split(raw, recordSep) {
		if strings.TrimSpace(rec) == "" {
			continue
		}
		f := strings.SplitN(rec, fieldSep, 6)
		if len(f) < 6 {
			continue
		}
		c := models.Commit{
			Hash:      f[0],
			ShortHash: shortHash(f[0]),
			Author:    f[1],
			Email:     f[2],
			Timestamp: f[3],
			Message:   strings.TrimSpace(f[4]),
			Files:     []string{},
		}
		for _, line := range strings.Split(f[5], "\n") {
			if line = strings.TrimSpace(line); line != "" {
				c.Files = append(c.Files, line)
			}
		}
		out = append(out, c)
	}
	return out
}

// parseDiff splits a multi-file patch into per-file entries.
func parseDiff(raw string) []models.FileDiff {
	out := []models.FileDiff{}
	for _, chunk := range strings.Split(raw, "diff --git ") {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		out = append(out, parseChunk(chunk))
	}
	return out
}

func parseChunk(chunk string) models.FileDiff {
	lines := strings.Split(chunk, "\n")
	d := models.FileDiff{Change: models.ChangeModified}
	oldPath, newPath := headerPaths(lines[0])
	body := -1
	binary := false

	for i, line := range lines[1:] {
		switch {
		case strings.HasPrefix(line, "new file mode"):
			d.Change = models.ChangeAdded
		case strings.HasPrefix(line, "deleted file mode"):
			d.Change = models.ChangeDeleted
		case strings.HasPrefix(line, "rename from "):
			d.Change = models.ChangeRenamed
			oldPath = strings.TrimPrefix(line, "rename from ")
		case strings.HasPrefix(line, "rename to "):
			newPath = strings.TrimPrefix(line, "rename to ")
		case strings.HasPrefix(line, "Binary files "), line == "GIT binary patch":
			binary = true
		case strings.HasPrefix(line, "--- "):
			body = i + 1
		}
		if body >= 0 {
			break
		}
	}

	d.Path = newPath
	if d.Change == models.ChangeDeleted {
		d.Path = oldPath
	}
	if d.Change == models.ChangeRenamed {
		d.OldPath = oldPath
	}
	switch {
	case binary:
		d.Diff = BinaryDiff
	case body >= 0:
		d.Diff = strings.TrimRight(strings.Join(lines[body:], "\n"), "\n") + "\n"
	}
	return d
}

// headerPaths extracts the two paths of "a/old b/new".
func headerPaths(header string) (string, string) {
	header = strings.TrimSpace(header)
	if i := strings.Index(header, " b/"); i >= 0 && strings.HasPrefix(header, "a/") {
		return header[2:i], header[i+3:]
	}
	return header, header
}

// parseStatus reads porcelain v1 output. Renames report the new path.
func parseStatus(raw string) []models.StatusEntry {
	out := []models.StatusEntry{}
	for _, line := range strings.Split(raw, "\n") {
		if len(line) < 4 {
			continue
		}
		p := line[3:]
		if i := strings.Index(p, " -> "); i >= 0 {
			p = p[i+4:]
		}
		out = append(out, models.StatusEntry{
			Code: strings.TrimSpace(line[:2]),
			Path: strings.Trim(p, `"`),
		})
	}
	return out
}

// addedDiff synthesizes the patch of a file that is entirely new.
func addedDiff(path string, data []byte) string {
	if bytes.IndexByte(data, 0) >= 0 {
		return BinaryDiff
	}
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return fmt.Sprintf("--- /dev/null\n+++ b/%s\n", path)
	}
	lines := strings.Split(text, "\n")
	var b strings.Builder
	fmt.Fprintf(&b, "--- /dev/null\n+++ b/%s\n@@ -0,0 +1,%d @@\n", path, len(lines))
	for _, l := range lines {
		b.WriteString("+" + l + "\n")
	}
	return b.String()
}
