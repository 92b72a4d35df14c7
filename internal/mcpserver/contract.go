package mcpserver

// NoteFormatContract describes the Markdown note format that LLM consumers
// should follow when creating or updating notes.
const NoteFormatContract = `# Chronicle Note Format

Every Markdown document in the vault follows this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title        # defaults to the file name
type: note                          # note, daily, tasks or kanban; defaults to note
created: 2024-03-02T09:00:00        # set when the page is created
tags: []                            # YAML list
---

Body text in standard Markdown.

Link to other pages with ordinary relative links: [plan](../projects/plan.md).
` + "```" + `

## Rules

1. **Frontmatter is optional but recommended.** When present, the ` + "`---`" + ` fence must
   be the very first line. A malformed block is treated as plain body text.
2. **Links are relative** to the directory of the note that contains them and
   point at the target file including its ` + "`.md`" + ` extension. Moving a page
   with the API rewrites every link to it.
3. **File paths** end with ` + "`.md`" + `, use forward slashes and never enter hidden
   directories (names starting with ` + "`.`" + `).
4. A directory may carry an ` + "`_index.md`" + ` whose title and type describe the
   directory in the page tree.
5. **Daily reports** live at ` + "`daily/YYYY-MM/YYYY-MM-DD.md`" + `. Create them with the
   ` + "`create_daily`" + ` tool rather than by hand so open tasks are carried over.
6. **Tasks** are GitHub-style checkboxes: ` + "`- [ ] open`" + `, ` + "`- [x] done`" + `.

## Images

- Store images with the ` + "`upload_asset`" + ` tool. It returns a ` + "`markdownImage`" + ` field
  ready to paste into the note body; pass ` + "`note`" + ` to get a link relative to it.
- Images live flat in ` + "`assets/images/`" + ` and are named ` + "`YYYYMMDD-xxxxxx.ext`" + `.
- Supported formats: png, jpg, jpeg, gif, webp, svg.
- Images no note references are removed by garbage collection before a full commit.

## Example

` + "```" + `markdown
---
title: Weekly standup
type: note
created: 2024-03-04T10:00:00
tags:
  - meetings
---

# Weekly standup

![Whiteboard](../assets/images/20240304-3fa9c1.jpg)

- [ ] Review the [design doc](design.md)
- [x] Update the [roadmap](../projects/roadmap.md)
` + "```" + `
`
