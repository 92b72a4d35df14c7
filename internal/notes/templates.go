package notes

import (
	goslug "github.com/gosimple/slug"

	"github.com/starford/chronicle/internal/frontmatter"
)

// Template describes the initial content of a new page of one type.
type Template struct {
	Type string
	// Tags emits an empty tags list in the metadata block.
	Tags bool
	Body func(title string) string
}

// Render produces the page text for title and the created timestamp.
func (t Template) Render(title, created string) []byte {
	m := frontmatter.Meta{Title: title, Type: t.Type, Created: created}
	if t.Tags {
		m.Tags = []string{}
	}
	return frontmatter.Encode(m, t.Body(title))
}

// DefaultTemplates returns the built-in note, daily, tasks and kanban
// templates. The daily template uses the given section headings.
func DefaultTemplates(done, tomorrow string) map[string]Template {
	return map[string]Template{
		"note": {
			Type: "note",
			Tags: true,
			Body: func(title string) string { return "# " + title + "\n\n" },
		},
		"daily": {
			Type: "daily",
			Body: func(string) string { return "## " + done + "\n\n\n## " + tomorrow + "\n\n" },
		},
		"tasks": {
			Type: "tasks",
			Tags: true,
			Body: func(string) string { return "- [ ] \n" },
		},
		"kanban": {
			Type: "kanban",
			Tags: true,
			Body: func(string) string { return "## TODO\n\n- [ ] \n\n## Doing\n\n\n## Done\n\n" },
		},
	}
}

// Slugify converts a title to a file-system safe base name.
func Slugify(title string) string {
	if s := goslug.Make(title); s != "" {
		return s
	}
	return "untitled"
}
