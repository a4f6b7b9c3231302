package main

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"glyphline/internal/card"
	"glyphline/internal/config"
	"glyphline/internal/db"
)

// setupTestApp creates a CLI app backed by a temporary database.
func setupTestApp(t *testing.T) (*sql.DB, *config.Config, func(args ...string) error) {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	database.SetMaxOpenConns(1)

	cfg := config.DefaultConfig()
	cfg.WorkspacesDir = t.TempDir()

	app := newCLIApp(database, cfg)
	run := func(args ...string) error {
		return app.Run(append([]string{"glyphline"}, args...))
	}
	return database, cfg, run
}

// silenceStdout redirects stdout for the duration of a test, so the JSON
// the commands print does not pollute test output.
func silenceStdout(t *testing.T) {
	t.Helper()
	orig := os.Stdout
	devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = devNull
	t.Cleanup(func() {
		os.Stdout = orig
		devNull.Close()
	})
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty", "", nil},
		{"single", "one", []string{"one"}},
		{"multiple", "a, b ,c", []string{"a", "b", "c"}},
		{"blanks dropped", "a,,  ,b", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitList(tt.input)
			if len(got) != len(tt.expected) {
				t.Fatalf("splitList(%q) = %v, want %v", tt.input, got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Fatalf("splitList(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestIsCLIMode(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	os.Args = []string{"glyphline"}
	if isCLIMode() {
		t.Fatal("no args should not be CLI mode")
	}

	os.Args = []string{"glyphline", "claim"}
	if !isCLIMode() {
		t.Fatal("known subcommand should be CLI mode")
	}

	os.Args = []string{"glyphline", "--help"}
	if !isCLIMode() {
		t.Fatal("--help should be CLI mode")
	}

	os.Args = []string{"glyphline", "bogus"}
	if isCLIMode() {
		t.Fatal("unknown arg should not be CLI mode")
	}
}

func TestCreateClaimReviewFlow(t *testing.T) {
	silenceStdout(t)
	database, cfg, run := setupTestApp(t)

	if err := run("create", "--project", "cli_test", "wire the parser"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := run("claim", "1"); err != nil {
		t.Fatalf("claim: %v", err)
	}

	// submit fails without the document
	if err := run("submit", "1"); err == nil {
		t.Fatal("submit without a document should fail")
	}

	doc := filepath.Join(cfg.WorkspacesDir, cfg.DefaultAgent, "output_001.md")
	if err := os.MkdirAll(filepath.Dir(doc), 0o755); err != nil {
		t.Fatal(err)
	}
	content := "## Summary\n" + strings.Repeat("parser wired and tested. ", 15)
	if err := os.WriteFile(doc, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := run("submit", "1"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// revision without notes is rejected
	if err := run("review", "revise", "1"); err == nil {
		t.Fatal("revise without notes should fail")
	}
	if err := run("review", "accept", "--notes", "works", "1"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	c, err := db.GetCard(database, 1, false)
	if err != nil {
		t.Fatal(err)
	}
	if c.Status != card.StatusAccepted {
		t.Fatalf("status = %s, want accepted", c.Status)
	}

	if err := run("archive", "1"); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if _, err := db.GetCard(database, 1, false); err == nil {
		t.Fatal("archived card should be hidden from active reads")
	}
}

func TestProjectCommands(t *testing.T) {
	silenceStdout(t)
	database, _, run := setupTestApp(t)

	if err := run("project", "activate", "cli_project"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	active, err := db.ActiveProject(database)
	if err != nil {
		t.Fatal(err)
	}
	if active != "cli_project" {
		t.Fatalf("active = %q", active)
	}

	// card creation now defaults into the namespace
	if err := run("create", "namespaced card"); err != nil {
		t.Fatalf("create: %v", err)
	}
	c, err := db.GetCard(database, 1, false)
	if err != nil {
		t.Fatal(err)
	}
	if c.Project != "cli_project" {
		t.Fatalf("project = %q", c.Project)
	}

	if err := run("project", "deactivate"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	active, _ = db.ActiveProject(database)
	if active != "" {
		t.Fatalf("active after deactivate = %q", active)
	}

	// without a namespace, create requires an explicit project
	if err := run("create", "orphan card"); err == nil {
		t.Fatal("create without a project should fail")
	}
}

func TestBadProjectNameRejected(t *testing.T) {
	silenceStdout(t)
	_, _, run := setupTestApp(t)

	err := run("project", "activate", "Bad Name")
	if err == nil {
		t.Fatal("expected an error for a bad project name")
	}
	if !strings.Contains(err.Error(), "VALIDATION") {
		t.Fatalf("error = %v", err)
	}
}
