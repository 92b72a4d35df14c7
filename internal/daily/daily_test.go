package daily

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/starford/chronicle/internal/apperr"
	"github.com/starford/chronicle/internal/models"
	"github.com/starford/chronicle/internal/storage"
	"github.com/starford/chronicle/internal/testutil"
)

var clock = time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *storage.FS) {
	t.Helper()
	fs := testutil.Vault(t, nil)
	return NewService(fs, WithClock(func() time.Time { return clock })), fs
}

func TestCreateTodayIdempotent(t *testing.T) {
	svc, fs := newService(t)
	ctx := context.Background()

	first, err := svc.CreateToday(ctx, "")
	if err != nil {
		t.Fatalf("CreateToday: %v", err)
	}
	if first.Path != "daily/2024-03/2024-03-02.md" || first.Status != models.DailyCreated {
		t.Errorf("first = %+v", first)
	}
	if !fs.Exists("daily/_index.md") {
		t.Error("daily index not created")
	}
	before, _ := fs.Read(first.Path)

	second, err := svc.CreateToday(ctx, "2024-03-02")
	if err != nil {
		t.Fatalf("second CreateToday: %v", err)
	}
	if second.Path != first.Path || second.Status != models.DailyExists {
		t.Errorf("second = %+v", second)
	}
	after, _ := fs.Read(first.Path)
	if string(before) != string(after) {
		t.Error("existing report was modified")
	}
}

func TestCreateTodayContentWithoutCarry(t *testing.T) {
	svc, fs := newService(t)
	res, err := svc.CreateToday(context.Background(), "2024-03-02")
	if err != nil {
		t.Fatalf("CreateToday: %v", err)
	}
	data, _ := fs.Read(res.Path)
	want := "---\ntitle: 2024-03-02 Daily Report\ntype: daily\ncreated: 2024-03-02T08:00:00Z\n---\n\n" +
		"## Done Today\n\n\n## Tomorrow's Tasks\n\n"
	if string(data) != want {
		t.Errorf("content =\n%q\nwant\n%q", data, want)
	}
	index, _ := fs.Read("daily/_index.md")
	if !strings.Contains(string(index), "title: Daily") || !strings.HasSuffix(string(index), "# Daily\n\n") {
		t.Errorf("index = %q", index)
	}
}

func TestCarryForward(t *testing.T) {
	svc, fs := newService(t)
	_ = fs.Write("daily/2024-02/2024-02-27.md", []byte("## Tomorrow's Tasks\n- stale\n"))
	_ = fs.Write("daily/2024-02/2024-02-29.md", []byte(strings.Join([]string{
		"---",
		"title: 2024-02-29 Daily Report",
		"type: daily",
		"---",
		"",
		"## Done Today",
		"- shipped",
		"",
		"## Tomorrow's Tasks",
		"",
		"- L1",
		"  - L2",
		"",
		"## Notes",
		"- unrelated",
	}, "\n")))
	// Later than the target date; must be ignored.
	_ = fs.Write("daily/2024-03/2024-03-05.md", []byte("## Tomorrow's Tasks\n- future\n"))

	res, err := svc.CreateToday(context.Background(), "2024-03-02")
	if err != nil {
		t.Fatalf("CreateToday: %v", err)
	}
	data, _ := fs.Read(res.Path)
	text := string(data)
	wantBlock := "## Done Today\n\n> **Carried over:**\n> - L1\n>   - L2\n\n\n## Tomorrow's Tasks\n\n"
	if !strings.HasSuffix(text, wantBlock) {
		t.Errorf("content =\n%s\nwant suffix\n%s", text, wantBlock)
	}
	for _, bad := range []string{"unrelated", "stale", "future", "shipped"} {
		if strings.Contains(text, bad) {
			t.Errorf("content carries %q:\n%s", bad, text)
		}
	}
}

func TestCreateTodayInvalidDateFallsBackToToday(t *testing.T) {
	svc, _ := newService(t)
	res, err := svc.CreateToday(context.Background(), "not-a-date")
	if err != nil {
		t.Fatalf("CreateToday: %v", err)
	}
	if res.Path != "daily/2024-03/2024-03-02.md" {
		t.Errorf("path = %q", res.Path)
	}
}

func TestCustomHeadings(t *testing.T) {
	fs := testutil.Vault(t, nil)
	svc := NewService(fs, WithClock(func() time.Time { return clock }), WithHeadings("Did", "Next"))
	_ = fs.Write("daily/2024-03/2024-03-01.md", []byte("## Next\n- carry me\n"))

	res, err := svc.CreateToday(context.Background(), "")
	if err != nil {
		t.Fatalf("CreateToday: %v", err)
	}
	data, _ := fs.Read(res.Path)
	if !strings.Contains(string(data), "## Did\n\n> **Carried over:**\n> - carry me\n") {
		t.Errorf("content = %q", data)
	}
}

func TestExtractSection(t *testing.T) {
	text := "# Title\n## Tomorrow's Tasks\n\n- a\n### sub\n- b\n# Top\n- c\n"
	got := ExtractSection(text, "Tomorrow's Tasks")
	want := []string{"- a", "### sub", "- b"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("ExtractSection = %q, want %q", got, want)
	}
	if got := ExtractSection("no heading here", "Tomorrow's Tasks"); len(got) != 0 {
		t.Errorf("expected nothing, got %q", got)
	}
}

func TestCalendarAndMonths(t *testing.T) {
	svc, fs := newService(t)
	_ = fs.Write("daily/2024-03/2024-03-02.md", []byte("---\ntitle: Second\n---\n"))
	_ = fs.Write("daily/2024-03/2024-03-01.md", []byte("plain"))
	_ = fs.Write("daily/2024-03/_index.md", []byte("index"))
	_ = fs.Write("daily/2024-03/notes.md", []byte("undated"))
	_ = fs.Write("daily/2023-12/2023-12-31.md", []byte("x"))
	_ = fs.Write("daily/archive/x.md", []byte("x"))

	entries, err := svc.Calendar(context.Background(), 2024, 3)
	if err != nil {
		t.Fatalf("Calendar: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Date != "2024-03-01" || entries[0].Title != "2024-03-01" {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].Title != "Second" || entries[1].Path != "daily/2024-03/2024-03-02.md" {
		t.Errorf("entries[1] = %+v", entries[1])
	}

	if _, err := svc.Calendar(context.Background(), 2024, 13); !errors.Is(err, apperr.ErrInvalidQuery) {
		t.Errorf("month 13: err = %v", err)
	}
	empty, err := svc.Calendar(context.Background(), 2020, 1)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty month = %v, %v", empty, err)
	}

	months, err := svc.Months(context.Background(), 0)
	if err != nil {
		t.Fatalf("Months: %v", err)
	}
	if strings.Join(months, ",") != "2023-12,2024-03" {
		t.Errorf("months = %v", months)
	}
	months, _ = svc.Months(context.Background(), 2024)
	if strings.Join(months, ",") != "2024-03" {
		t.Errorf("months(2024) = %v", months)
	}
}

func TestMonthsWithoutDailyDir(t *testing.T) {
	svc, _ := newService(t)
	months, err := svc.Months(context.Background(), 0)
	if err != nil || len(months) != 0 {
		t.Errorf("months = %v, %v", months, err)
	}
}
