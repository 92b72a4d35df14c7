package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/starford/chronicle/internal/engine"
	"github.com/starford/chronicle/internal/models"
	"github.com/starford/chronicle/internal/testutil"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

func fixedNow() time.Time { return time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC) }

// testEnv sets up a temp vault, engine and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*engine.Engine, http.Handler) {
	t.Helper()
	return testEnvFull(t, engine.Config{}, authToken, nil)
}

func testEnvFull(t *testing.T, cfg engine.Config, authToken string, sseHandler http.Handler) (*engine.Engine, http.Handler) {
	t.Helper()
	cfg.VaultPath = t.TempDir()
	if cfg.Now == nil {
		cfg.Now = fixedNow
	}
	e, err := engine.New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return e, NewRouter(e, authToken != "", authToken, sseHandler, nil)
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, r)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestSaveAndGetNote(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPut, "/notes/topics/hello.md",
		map[string]string{"content": "---\ntitle: Hello\ntags: [a]\n---\nWorld"})
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/notes/topics%2Fhello.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	note := decode[models.Note](t, w)
	if note.Path != "topics/hello.md" || note.Title != "Hello" || len(note.Tags) != 1 {
		t.Errorf("note = %+v", note)
	}
	if w.Header().Get("ETag") != `"`+note.Checksum+`"` {
		t.Errorf("ETag = %q", w.Header().Get("ETag"))
	}
}

func TestSaveWithOptimisticLocking(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPut, "/notes/lock.md", map[string]string{"content": "v1"})
	created := decode[models.Note](t, w)

	req := httptest.NewRequest(http.MethodPut, "/notes/lock.md", strings.NewReader(`{"content":"v2"}`))
	req.Header.Set("If-Match", `"`+created.Checksum+`"`)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("save with correct checksum = %d, body = %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodPut, "/notes/lock.md", strings.NewReader(`{"content":"v3"}`))
	req.Header.Set("If-Match", created.Checksum) // stale now
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("save with stale checksum = %d, want 409", w.Code)
	}
}

func TestSaveNoteValidation(t *testing.T) {
	_, router := testEnv(t, "")
	tests := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{"missing content", "/notes/a.md", `{}`, http.StatusBadRequest},
		{"bad json", "/notes/a.md", `{`, http.StatusBadRequest},
		{"empty content allowed", "/notes/a.md", `{"content":""}`, http.StatusOK},
		{"traversal", "/notes/..%2F..%2Fetc%2Fx.md", `{"content":"x"}`, http.StatusBadRequest},
		{"not markdown", "/notes/a.txt", `{"content":"x"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, tt.target, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestDeleteNote(t *testing.T) {
	_, router := testEnv(t, "")
	do(t, router, http.MethodPut, "/notes/dir/bye.md", map[string]string{"content": "gone"})

	if w := do(t, router, http.MethodDelete, "/notes/dir/bye.md", nil); w.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/notes/dir/bye.md", nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/notes/dir/bye.md", nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestDeleteAndMoveProtectedPaths(t *testing.T) {
	_, router := testEnv(t, "")
	do(t, router, http.MethodPut, "/notes/a.md", map[string]string{"content": "# A"})

	for _, target := range []string{"/notes/.git/HEAD", "/notes/assets/images/20240101-abcdef.png"} {
		if w := do(t, router, http.MethodDelete, target, nil); w.Code != http.StatusBadRequest {
			t.Errorf("DELETE %s = %d, want 400", target, w.Code)
		}
	}
	w := do(t, router, http.MethodPut, "/pages/move", MovePageRequest{Source: "a.md", Destination: ".git/hooks/a.md"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("move into .git = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/notes/a.md", nil); w.Code != http.StatusOK {
		t.Errorf("a.md after rejected move = %d", w.Code)
	}
}

func TestListNotes(t *testing.T) {
	_, router := testEnv(t, "")
	for _, name := range []string{"b.md", "a.md"} {
		do(t, router, http.MethodPut, "/notes/"+name, map[string]string{"content": "# " + name})
	}

	w := do(t, router, http.MethodGet, "/notes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	resp := decode[NoteListResponse](t, w)
	if resp.Total != 2 || resp.Notes[0].Path != "a.md" {
		t.Errorf("list = %+v", resp)
	}
}

func TestRenderNote(t *testing.T) {
	_, router := testEnv(t, "")
	do(t, router, http.MethodPut, "/notes/r.md", map[string]string{"content": "---\ntitle: R\n---\n# Head\n\n~~old~~"})

	w := do(t, router, http.MethodGet, "/render/r.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("render = %d", w.Code)
	}
	resp := decode[RenderResponse](t, w)
	if !strings.Contains(resp.HTML, "<h1>Head</h1>") || !strings.Contains(resp.HTML, "<del>old</del>") {
		t.Errorf("html = %q", resp.HTML)
	}
	if strings.Contains(resp.HTML, "title: R") {
		t.Errorf("frontmatter rendered: %q", resp.HTML)
	}
}

func TestPagesTreeAndMove(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/pages/create", CreatePageRequest{Title: "Launch Plan", Type: "tasks"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, body = %s", w.Code, w.Body.String())
	}
	page := decode[models.PageResult](t, w)
	if page.Path != "launch-plan.md" {
		t.Errorf("path = %q", page.Path)
	}
	if w := do(t, router, http.MethodPost, "/pages/create", CreatePageRequest{Title: "Launch Plan"}); w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/pages/create", CreatePageRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("create without title = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/pages/create", CreatePageRequest{Parent: "nope", Title: "x"}); w.Code != http.StatusNotFound {
		t.Errorf("create under missing parent = %d, want 404", w.Code)
	}

	do(t, router, http.MethodPut, "/notes/index.md", map[string]string{"content": "see [plan](launch-plan.md)"})
	w = do(t, router, http.MethodPut, "/pages/move", MovePageRequest{Source: "launch-plan.md", Destination: "archive/plan.md"})
	if w.Code != http.StatusOK {
		t.Fatalf("move = %d, body = %s", w.Code, w.Body.String())
	}
	moved := decode[models.PageResult](t, w)
	if moved.Path != "archive/plan.md" || len(moved.Rewritten) != 1 || moved.Rewritten[0] != "index.md" {
		t.Errorf("move = %+v", moved)
	}
	note := decode[models.Note](t, do(t, router, http.MethodGet, "/notes/index.md", nil))
	if note.Content != "see [plan](archive/plan.md)" {
		t.Errorf("rewritten content = %q", note.Content)
	}

	w = do(t, router, http.MethodGet, "/tree", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("tree = %d", w.Code)
	}
	root := decode[models.TreeNode](t, w)
	if root.Name != "vault" || len(root.Children) != 2 || root.Children[0].Name != "archive" {
		t.Errorf("tree = %+v", root)
	}
}

func TestTemplates(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/templates/daily", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("template = %d", w.Code)
	}
	resp := decode[TemplateResponse](t, w)
	if !strings.Contains(resp.Content, "## Tomorrow's Tasks") {
		t.Errorf("content = %q", resp.Content)
	}
	if w := do(t, router, http.MethodGet, "/templates/unknown", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown template = %d, want 404", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	do(t, router, http.MethodPut, "/notes/find.md", map[string]string{"content": "---\ntitle: uniquetoken\n---\nuniquetoken here\nand uniquetoken again"})

	w := do(t, router, http.MethodGet, "/search?q=UNIQUETOKEN", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d, body = %s", w.Code, w.Body.String())
	}
	page := decode[models.SearchPage](t, w)
	if page.Total != 1 || len(page.Results[0].Matches) != 2 {
		t.Errorf("search = %+v", page)
	}

	if w := do(t, router, http.MethodGet, "/search?q=uniquetoken&case=true", nil); decode[models.SearchPage](t, w).Total != 1 {
		t.Errorf("case-sensitive search missed lowercase hit")
	}
	if w := do(t, router, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/search?q=(&regex=true", nil); w.Code != http.StatusBadRequest {
		t.Errorf("invalid regex = %d, want 400", w.Code)
	}
}

func TestDailyEndpoints(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/daily/today", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("daily = %d, body = %s", w.Code, w.Body.String())
	}
	res := decode[models.DailyResult](t, w)
	if res.Path != "daily/2024-03/2024-03-02.md" || res.Status != models.DailyCreated {
		t.Errorf("daily = %+v", res)
	}
	w = do(t, router, http.MethodPost, "/daily/today", DailyRequest{Date: "2024-03-02"})
	if w.Code != http.StatusOK || decode[models.DailyResult](t, w).Status != models.DailyExists {
		t.Errorf("second daily = %d %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/daily/calendar?year=2024&month=3", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("calendar = %d", w.Code)
	}
	cal := decode[CalendarResponse](t, w)
	if len(cal.Entries) != 1 || cal.Entries[0].Title != "2024-03-02 Daily Report" {
		t.Errorf("calendar = %+v", cal)
	}
	for _, q := range []string{"year=2024&month=13", "year=2024", "month=3"} {
		if w := do(t, router, http.MethodGet, "/daily/calendar?"+q, nil); w.Code != http.StatusBadRequest {
			t.Errorf("calendar?%s = %d, want 400", q, w.Code)
		}
	}

	months := decode[MonthsResponse](t, do(t, router, http.MethodGet, "/daily/months", nil))
	if len(months.Months) != 1 || months.Months[0] != "2024-03" {
		t.Errorf("months = %+v", months)
	}
}

func TestMaintenanceEndpoints(t *testing.T) {
	e, router := testEnv(t, "")
	do(t, router, http.MethodPut, "/notes/a.md", map[string]string{"content": "[gone](missing.md)\n[ok](a.md)\n[web](https://x.org)"})
	if err := e.Store.Write("assets/images/20240101-aaaaaa.png", pngBytes); err != nil {
		t.Fatal(err)
	}
	old := fixedNow().Add(-time.Hour)
	abs, _ := e.Store.Resolve("assets/images/20240101-aaaaaa.png")
	_ = os.Chtimes(abs, old, old)

	links := decode[LinkCheckResponse](t, do(t, router, http.MethodGet, "/links/check", nil))
	if len(links.Broken) != 1 || links.Broken[0].Target != "missing.md" || links.Broken[0].Line != 1 {
		t.Errorf("broken = %+v", links.Broken)
	}

	preview := decode[models.GCPreview](t, do(t, router, http.MethodGet, "/gc/preview", nil))
	if len(preview.Candidates) != 1 {
		t.Errorf("preview = %+v", preview)
	}
	w := do(t, router, http.MethodPost, "/gc", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("gc = %d", w.Code)
	}
	if rep := decode[models.GCReport](t, w); len(rep.Deleted) != 1 {
		t.Errorf("gc = %+v", rep)
	}
	if e.Store.Exists("assets/images/20240101-aaaaaa.png") {
		t.Error("unreferenced image survived gc")
	}
}

func TestHistoryDisabled(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/git/status", nil); w.Code != http.StatusBadGateway {
		t.Errorf("status with history disabled = %d, want 502", w.Code)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	testutil.RequireGit(t)
	_, router := testEnvFull(t, engine.Config{GitEnabled: true}, "", nil)
	do(t, router, http.MethodPut, "/notes/a.md", map[string]string{"content": "v1\n"})

	if w := do(t, router, http.MethodPost, "/git/commit", CommitRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("commit without message = %d, want 400", w.Code)
	}
	w := do(t, router, http.MethodPost, "/git/commit", CommitRequest{Message: "first"})
	if w.Code != http.StatusCreated {
		t.Fatalf("commit = %d, body = %s", w.Code, w.Body.String())
	}
	first := decode[models.CommitResult](t, w)

	w = do(t, router, http.MethodPost, "/git/commit", CommitRequest{Message: "again"})
	if w.Code != http.StatusOK || decode[models.CommitResult](t, w).Status != models.NothingToCommit {
		t.Errorf("empty commit = %d %s", w.Code, w.Body.String())
	}

	do(t, router, http.MethodPut, "/notes/a.md", map[string]string{"content": "v2\n"})
	status := decode[StatusResponse](t, do(t, router, http.MethodGet, "/git/status", nil))
	if len(status.Entries) != 1 || status.Entries[0].Path != "a.md" {
		t.Errorf("status = %+v", status)
	}
	wd := decode[WorkingDiffResponse](t, do(t, router, http.MethodGet, "/git/working-diff/a.md", nil))
	if !strings.Contains(wd.Diff, "+v2") {
		t.Errorf("working diff = %q", wd.Diff)
	}
	if w := do(t, router, http.MethodPost, "/git/commit", CommitRequest{Message: "second", Files: []string{"a.md"}}); w.Code != http.StatusCreated {
		t.Fatalf("second commit = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodPost, "/git/restore/"+first.Commit.ShortHash, RestoreRequest{File: "a.md"})
	if w.Code != http.StatusCreated {
		t.Fatalf("restore = %d, body = %s", w.Code, w.Body.String())
	}
	note := decode[models.Note](t, do(t, router, http.MethodGet, "/notes/a.md", nil))
	if note.Content != "v1\n" {
		t.Errorf("restored content = %q", note.Content)
	}
	log := decode[models.LogPage](t, do(t, router, http.MethodGet, "/git/log?per_page=1", nil))
	if log.Total != 3 || len(log.Commits) != 1 || !strings.HasPrefix(log.Commits[0].Message, "Restored to ") {
		t.Errorf("log = %+v", log)
	}

	diff := decode[DiffResponse](t, do(t, router, http.MethodGet, "/git/diff/"+first.Commit.Hash, nil))
	if len(diff.Files) != 1 || diff.Files[0].Change != models.ChangeAdded {
		t.Errorf("diff = %+v", diff)
	}
	if w := do(t, router, http.MethodGet, "/git/diff/not-a-hash", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad hash = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/git/diff/deadbeef", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown hash = %d, want 404", w.Code)
	}

	fl := decode[FileLogResponse](t, do(t, router, http.MethodGet, "/git/file-log/a.md", nil))
	if len(fl.Commits) != 3 {
		t.Errorf("file log = %+v", fl)
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, router := testEnv(t, "secret123")
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer secret123", http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "Bearer wrong", http.StatusUnauthorized},
		{"scheme", "Basic secret123", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/notes", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/notes", nil); w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

// blockingSSE is a minimal SSE handler stub that writes headers and blocks
// until the request context is done.
var blockingSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := testEnvFull(t, engine.Config{}, "secret", blockingSSE)

	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router := testEnvFull(t, engine.Config{}, "tok", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
}

// Asset tests.

func uploadFile(t *testing.T, router http.Handler, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(part, bytes.NewReader(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/assets/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadIndexAndServeAsset(t *testing.T) {
	_, router := testEnv(t, "")

	w := uploadFile(t, router, "shot.png", pngBytes)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	asset := decode[models.Asset](t, w)
	if !strings.HasPrefix(asset.Name, "20240302-") || !strings.HasSuffix(asset.Name, ".png") {
		t.Errorf("name = %q", asset.Name)
	}
	if asset.Path != "assets/images/"+asset.Name {
		t.Errorf("path = %q", asset.Path)
	}

	idx := decode[AssetIndexResponse](t, do(t, router, http.MethodGet, "/assets/index", nil))
	if len(idx.Images) != 1 || idx.Images[0].Name != asset.Name {
		t.Errorf("index = %+v", idx)
	}

	w = do(t, router, http.MethodGet, "/assets/"+asset.Name, nil)
	if w.Code != http.StatusOK || !bytes.Equal(w.Body.Bytes(), pngBytes) {
		t.Errorf("serve = %d, %d bytes", w.Code, w.Body.Len())
	}
	if w := do(t, router, http.MethodGet, "/assets/nope.png", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing asset = %d, want 404", w.Code)
	}
}

func TestUploadAssetRejects(t *testing.T) {
	_, router := testEnv(t, "")
	tests := []struct {
		name     string
		filename string
		content  []byte
	}{
		{"unsupported type", "notes.txt", []byte("hello")},
		{"content mismatch", "fake.png", []byte("not a png at all")},
		{"empty", "empty.png", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := uploadFile(t, router, tt.filename, tt.content); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", w.Code, w.Body.String())
			}
		})
	}
}

func TestUploadAsset_MissingFileField(t *testing.T) {
	_, router := testEnv(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("wrong", "data")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/assets/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing field = %d, want 400", w.Code)
	}
}

func TestServeAsset_TraversalBlocked(t *testing.T) {
	_, router := testEnv(t, "")
	for _, name := range []string{"..%2Fsecret.md", "..%2F..%2Fetc%2Fpasswd"} {
		if w := do(t, router, http.MethodGet, "/assets/"+name, nil); w.Code == http.StatusOK {
			t.Errorf("traversal %q should not return 200", name)
		}
	}
}
