package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/starford/chronicle/internal/apperr"
	"github.com/starford/chronicle/internal/testutil"
)

func newEngine(t *testing.T, files map[string]string) *Engine {
	t.Helper()
	return NewEngine(testutil.Vault(t, files), 0, 0, nil)
}

func TestSearchSingleHitSkipsFrontmatter(t *testing.T) {
	e := newEngine(t, map[string]string{
		"note.md": "---\ntitle: Unicorn facts\ntags: [unicorn]\n---\n\nintro\nthe unicorn appears here\nend\n",
	})
	page, err := e.Search(context.Background(), Query{Q: "unicorn"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.Total != 1 || len(page.Results) != 1 {
		t.Fatalf("page = %+v", page)
	}
	r := page.Results[0]
	if r.Title != "Unicorn facts" || r.Type != "note" {
		t.Errorf("result meta = %q %q", r.Title, r.Type)
	}
	if len(r.Matches) != 1 || r.Matches[0].Line != 7 {
		t.Fatalf("matches = %+v, want one hit at line 7", r.Matches)
	}
	if r.Matches[0].Snippet != "the **unicorn** appears here" {
		t.Errorf("snippet = %q", r.Matches[0].Snippet)
	}
}

func TestSearchOneHitPerLine(t *testing.T) {
	e := newEngine(t, map[string]string{"a.md": "go go go\nstop\n"})
	page, err := e.Search(context.Background(), Query{Q: "go"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := len(page.Results[0].Matches); got != 1 {
		t.Errorf("hits = %d, want 1", got)
	}
}

func TestSearchRankingAndFilters(t *testing.T) {
	e := newEngine(t, map[string]string{
		"b.md":             "kiwi\n",
		"a.md":             "kiwi\n",
		"c.md":             "kiwi\nkiwi\nkiwi\n",
		"daily/2024-01.md": "---\ntype: daily\n---\nkiwi\n",
		"assets/skip.md":   "kiwi\n",
		"projects/kiwi.md": "---\ntype: daily\n---\nKIWI\n",
	})

	page, err := e.Search(context.Background(), Query{Q: "kiwi"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	var order []string
	for _, r := range page.Results {
		order = append(order, r.Path)
	}
	want := "c.md,a.md,b.md,daily/2024-01.md,projects/kiwi.md"
	if strings.Join(order, ",") != want {
		t.Errorf("order = %v, want %s", order, want)
	}

	page, _ = e.Search(context.Background(), Query{Q: "kiwi", Type: "daily"})
	if page.Total != 2 {
		t.Errorf("type filter total = %d, want 2", page.Total)
	}
	page, _ = e.Search(context.Background(), Query{Q: "kiwi", Path: "projects/"})
	if page.Total != 1 || page.Results[0].Path != "projects/kiwi.md" {
		t.Errorf("path filter = %+v", page.Results)
	}
	page, _ = e.Search(context.Background(), Query{Q: "KIWI", CaseSensitive: true})
	if page.Total != 1 {
		t.Errorf("case sensitive total = %d, want 1", page.Total)
	}
}

func TestSearchRegexAndErrors(t *testing.T) {
	e := newEngine(t, map[string]string{"a.md": "id-123\nid-x\n(literal)\n"})

	page, err := e.Search(context.Background(), Query{Q: `id-\d+`, Regex: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.Total != 1 || len(page.Results[0].Matches) != 1 {
		t.Errorf("regex page = %+v", page)
	}

	page, err = e.Search(context.Background(), Query{Q: "(literal)"})
	if err != nil || page.Total != 1 {
		t.Errorf("literal special chars: page = %+v, err = %v", page, err)
	}

	for _, q := range []Query{{Q: ""}, {Q: "(", Regex: true}} {
		if _, err := e.Search(context.Background(), q); !errors.Is(err, apperr.ErrInvalidQuery) {
			t.Errorf("query %+v: err = %v, want ErrInvalidQuery", q, err)
		}
	}
}

func TestSearchPagination(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 25; i++ {
		files[fmt.Sprintf("n%02d.md", i)] = "needle\n"
	}
	e := newEngine(t, files)

	page, err := e.Search(context.Background(), Query{Q: "needle"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.Total != 25 || len(page.Results) != DefaultPerPage || page.PerPage != DefaultPerPage {
		t.Errorf("first page: total=%d len=%d per_page=%d", page.Total, len(page.Results), page.PerPage)
	}

	page, _ = e.Search(context.Background(), Query{Q: "needle", Page: 2, PerPage: 10})
	if len(page.Results) != 10 || page.Results[0].Path != "n10.md" {
		t.Errorf("second page = %d results starting %q", len(page.Results), page.Results[0].Path)
	}

	page, _ = e.Search(context.Background(), Query{Q: "needle", Page: 9})
	if len(page.Results) != 0 || page.Total != 25 {
		t.Errorf("past the end: %+v", page)
	}

	page, _ = e.Search(context.Background(), Query{Q: "needle", PerPage: 1000})
	if page.PerPage != MaxPerPage {
		t.Errorf("per_page = %d, want clamp to %d", page.PerPage, MaxPerPage)
	}
}

func TestSnippet(t *testing.T) {
	long := strings.Repeat("a", 40) + "KEY" + strings.Repeat("b", 40)
	got := Snippet(long, 40, 43)
	want := "..." + strings.Repeat("a", 30) + "**KEY**" + strings.Repeat("b", 30) + "..."
	if got != want {
		t.Errorf("Snippet = %q", got)
	}

	short := "x KEY y"
	if got := Snippet(short, 2, 5); got != "x **KEY** y" {
		t.Errorf("short snippet = %q", got)
	}

	// Context is counted in characters, not bytes.
	multi := strings.Repeat("é", 35) + "k"
	start := len(strings.Repeat("é", 35))
	if got := Snippet(multi, start, start+1); got != "..."+strings.Repeat("é", 30)+"**k**" {
		t.Errorf("multibyte snippet = %q", got)
	}
}
