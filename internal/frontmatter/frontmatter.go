// Package frontmatter decodes and encodes the YAML metadata block that
// prefixes vault documents.
package frontmatter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Marker delimits the metadata block.
const Marker = "---"

// DefaultType is applied when a document does not declare a type.
const DefaultType = "note"

// Meta is the typed view of a document's metadata.
type Meta struct {
	Title   string   `json:"title"`
	Type    string   `json:"type"`
	Created string   `json:"created,omitempty"`
	Tags    []string `json:"tags"`
}

var errUnterminated = errors.New("frontmatter: unterminated block")

// Decode splits data into its metadata mapping and body. It never fails:
// a missing, unterminated or malformed block yields an empty mapping and the
// whole text as body.
func Decode(data []byte) (map[string]any, string) {
	fields, body, err := Parse(data)
	if err != nil {
		return map[string]any{}, string(data)
	}
	return fields, body
}

// Parse is the strict variant of Decode. Malformed YAML, a non-mapping block
// or an ill-typed tags field is reported as an error.
func Parse(data []byte) (map[string]any, string, error) {
	text := string(data)
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || !isMarker(lines[0]) {
		return map[string]any{}, text, nil
	}
	end := BodyStart(lines)
	if end == 0 {
		return nil, "", errUnterminated
	}

	block := strings.Join(lines[1:end-1], "\n")
	fields := map[string]any{}
	if strings.TrimSpace(block) != "" {
		if err := yaml.Unmarshal([]byte(block), &fields); err != nil {
			return nil, "", fmt.Errorf("frontmatter: %w", err)
		}
		if fields == nil {
			fields = map[string]any{}
		}
	}
	if raw, ok := fields["tags"]; ok && raw != nil {
		if _, err := toStrings(raw); err != nil {
			return nil, "", err
		}
	}

	body := strings.Join(lines[end:], "\n")
	body = strings.TrimLeft(body, "\r\n")
	return fields, body, nil
}

// BodyStart returns the index of the first line after the metadata block,
// located by the second marker line from the top. It returns 0 when the
// document has no block or the block is never closed.
func BodyStart(lines []string) int {
	if len(lines) == 0 || !isMarker(lines[0]) {
		return 0
	}
	for i := 1; i < len(lines); i++ {
		if isMarker(lines[i]) {
			return i + 1
		}
	}
	return 0
}

func isMarker(line string) bool {
	return strings.TrimRight(line, " \t\r") == Marker
}

// MetaOf converts a decoded mapping into Meta, defaulting the title to stem
// and the type to DefaultType. Ill-typed values fall back to defaults.
func MetaOf(fields map[string]any, stem string) Meta {
	m := Meta{Title: stem, Type: DefaultType, Tags: []string{}}
	if v, ok := fields["title"]; ok && v != nil {
		if s := scalarString(v); s != "" {
			m.Title = s
		}
	}
	if v, ok := fields["type"]; ok && v != nil {
		if s := scalarString(v); s != "" {
			m.Type = s
		}
	}
	if v, ok := fields["created"]; ok && v != nil {
		m.Created = scalarString(v)
	}
	if v, ok := fields["tags"]; ok && v != nil {
		if tags, err := toStrings(v); err == nil {
			m.Tags = tags
		}
	}
	return m
}

// Encode emits the marker, the fields in fixed order (title, type, created,
// tags), the closing marker, a blank line and the body. Empty created and nil
// tags are omitted.
func Encode(m Meta, body string) []byte {
	node := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, value *yaml.Node) {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, value)
	}

	add("title", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: m.Title})
	add("type", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: m.Type})
	if m.Created != "" {
		add("created", &yaml.Node{Kind: yaml.ScalarNode, Value: m.Created})
	}
	if m.Tags != nil {
		seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, t := range m.Tags {
			seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: t})
		}
		add("tags", seq)
	}

	out, err := yaml.Marshal(node)
	if err != nil {
		// Only scalar strings are emitted, so encoding cannot fail.
		panic(fmt.Sprintf("frontmatter: encode: %v", err))
	}

	var b strings.Builder
	b.WriteString(Marker + "\n")
	b.Write(out)
	b.WriteString(Marker + "\n\n")
	b.WriteString(body)
	return []byte(b.String())
}

// Timestamp formats t the way documents record their creation time.
func Timestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		return Timestamp(x)
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

func toStrings(v any) ([]string, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("frontmatter: tags must be a list, got %T", v)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("frontmatter: tag must be a string, got %T", item)
		}
		out = append(out, s)
	}
	return out, nil
}
