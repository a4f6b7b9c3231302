package web

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"glyphline/internal/card"
	"glyphline/internal/config"
	"glyphline/internal/db"
	"glyphline/internal/ops"
)

func testServer(t *testing.T) (*http.Server, *sql.DB, *config.Config) {
	t.Helper()

	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	database.SetMaxOpenConns(1)

	cfg := config.DefaultConfig()
	cfg.WorkspacesDir = t.TempDir()

	return NewServer(database, cfg, "test", "127.0.0.1", 0), database, cfg
}

func get(t *testing.T, srv *http.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func postForm(t *testing.T, srv *http.Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

// submitCard drives a card to awaiting_acceptance through the ops layer.
func submitCard(t *testing.T, database *sql.DB, cfg *config.Config, title string) int64 {
	t.Helper()
	created, err := ops.Create(database, cfg, ops.CreateInput{
		Title:   title,
		Project: "web_test",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ops.Claim(database, cfg, ops.ClaimInput{Agent: "claude", CardID: created.CardID}); err != nil {
		t.Fatal(err)
	}
	doc := ops.DocPathFor(cfg, "claude", created.CardID)
	if err := os.MkdirAll(filepath.Dir(doc), 0o755); err != nil {
		t.Fatal(err)
	}
	content := "## Summary\n" + strings.Repeat("the work is complete. ", 15)
	if err := os.WriteFile(doc, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ops.Submit(database, cfg, ops.SubmitInput{Agent: "claude", CardID: created.CardID}); err != nil {
		t.Fatal(err)
	}
	return created.CardID
}

func TestRootRedirectsToQueue(t *testing.T) {
	srv, _, _ := testServer(t)
	rec := get(t, srv, "/")
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/queue" {
		t.Fatalf("Location = %q", loc)
	}
}

func TestQueueShowsAwaitingCard(t *testing.T) {
	srv, database, cfg := testServer(t)
	submitCard(t, database, cfg, "queued work")

	rec := get(t, srv, "/queue")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "queued work") {
		t.Fatal("queue should list the submitted card")
	}
	if !strings.Contains(body, "/cards/1/accept") {
		t.Fatal("queue should carry an accept form")
	}
}

func TestAcceptThroughForm(t *testing.T) {
	srv, database, cfg := testServer(t)
	id := submitCard(t, database, cfg, "form accepted")

	rec := postForm(t, srv, "/cards/1/accept", url.Values{
		"reviewer": {"human"},
		"notes":    {"looks right"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	c, err := db.GetCard(database, id, false)
	if err != nil {
		t.Fatal(err)
	}
	if c.Status != card.StatusAccepted {
		t.Fatalf("status after accept = %s", c.Status)
	}
	recs, err := db.RecordsForCard(database, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Notes != "looks right" {
		t.Fatalf("records = %+v", recs)
	}
}

func TestReviseRequiresNotes(t *testing.T) {
	srv, database, cfg := testServer(t)
	id := submitCard(t, database, cfg, "revise me")

	rec := postForm(t, srv, "/cards/1/revise", url.Values{"reviewer": {"human"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = postForm(t, srv, "/cards/1/revise", url.Values{
		"reviewer": {"human"},
		"notes":    {"tighten the edge cases"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}

	c, err := db.GetCard(database, id, false)
	if err != nil {
		t.Fatal(err)
	}
	if c.Status != card.StatusNeedsRevision {
		t.Fatalf("status = %s", c.Status)
	}
}

func TestDetailRendersDocument(t *testing.T) {
	srv, database, cfg := testServer(t)
	submitCard(t, database, cfg, "documented card")

	rec := get(t, srv, "/cards/1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	// goldmark turns the ## heading into an h2
	if !strings.Contains(body, "<h2>Summary</h2>") {
		t.Fatal("detail should render the submission document as HTML")
	}
}

func TestDetailUnknownCard(t *testing.T) {
	srv, _, _ := testServer(t)
	rec := get(t, srv, "/cards/999")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv, _, _ := testServer(t)
	rec := get(t, srv, "/queue")
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatal("missing X-Frame-Options")
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Fatal("missing Content-Security-Policy")
	}
}
