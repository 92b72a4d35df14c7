package engine

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/chronicle/internal/apperr"
	"github.com/starford/chronicle/internal/models"
	"github.com/starford/chronicle/internal/search"
	"github.com/starford/chronicle/internal/testutil"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
}

func TestNewCreatesVaultAndWiresServices(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "vault")
	e, err := New(context.Background(), Config{
		VaultPath:   dir,
		DoneHeading: "Did",
		Now:         fixedClock,
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	res, err := e.Daily.CreateToday(ctx, "")
	if err != nil {
		t.Fatalf("CreateToday: %v", err)
	}
	if res.Path != "daily/2024-03/2024-03-02.md" {
		t.Errorf("path = %q", res.Path)
	}

	page, err := e.Search.Search(ctx, search.Query{Q: "## Did"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.Total != 1 || page.Results[0].Path != res.Path {
		t.Errorf("search = %+v", page)
	}

	tmpl, err := e.Notes.Template("daily")
	if err != nil {
		t.Fatalf("Template: %v", err)
	}
	if !strings.Contains(tmpl, "## Did") {
		t.Errorf("daily template does not use configured heading: %q", tmpl)
	}

	if _, err := e.History.Status(ctx); !errors.Is(err, apperr.ErrUpstream) {
		t.Errorf("history disabled: err = %v", err)
	}
}

func TestNewWithGit(t *testing.T) {
	testutil.RequireGit(t)
	e, err := New(context.Background(), Config{VaultPath: t.TempDir(), GitEnabled: true, Now: fixedClock}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if _, err := e.Notes.Save(ctx, "a.md", []byte("# A\n"), ""); err != nil {
		t.Fatalf("Save: %v", err)
	}
	res, err := e.History.Commit(ctx, "init", nil)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if res.Status != models.CommitCreated {
		t.Errorf("status = %q", res.Status)
	}
}
