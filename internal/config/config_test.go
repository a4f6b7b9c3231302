package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MinDocChars != 200 {
		t.Errorf("MinDocChars = %d, want 200", cfg.MinDocChars)
	}
	if cfg.DefaultAgent != "claude" {
		t.Errorf("DefaultAgent = %q, want claude", cfg.DefaultAgent)
	}
	if cfg.DefaultReviewer != "human" {
		t.Errorf("DefaultReviewer = %q, want human", cfg.DefaultReviewer)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	content := `{"min_doc_chars": 500, "default_agent": "opus"}`
	if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MinDocChars != 500 {
		t.Errorf("MinDocChars = %d, want 500", cfg.MinDocChars)
	}
	if cfg.DefaultAgent != "opus" {
		t.Errorf("DefaultAgent = %q, want opus", cfg.DefaultAgent)
	}
	// untouched scalar keeps default
	if cfg.DefaultReviewer != "human" {
		t.Errorf("DefaultReviewer = %q, want human", cfg.DefaultReviewer)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte("{nope"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(tmpDir); err == nil {
		t.Error("Load should fail on invalid JSON")
	}
}

func TestLoadWithRepoOverlay(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()
	nested := filepath.Join(repoRoot, "a", "b")
	if err := os.MkdirAll(filepath.Join(repoRoot, ".glyphline"), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(nested, 0700); err != nil {
		t.Fatal(err)
	}

	global := `{"min_doc_chars": 300, "disabled_tools": ["archive_card"]}`
	if err := os.WriteFile(filepath.Join(globalDir, "config.json"), []byte(global), 0600); err != nil {
		t.Fatal(err)
	}
	repo := `{"min_doc_chars": 100, "disabled_tools": ["create_project"]}`
	if err := os.WriteFile(filepath.Join(repoRoot, ".glyphline", "config.json"), []byte(repo), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadWithRepo(globalDir, nested)
	if err != nil {
		t.Fatalf("LoadWithRepo failed: %v", err)
	}
	if cfg.MinDocChars != 100 {
		t.Errorf("MinDocChars = %d, want repo override 100", cfg.MinDocChars)
	}
	if len(cfg.DisabledTools) != 2 {
		t.Errorf("DisabledTools = %v, want merged pair", cfg.DisabledTools)
	}
}

func TestMergeDeduplicatesArrays(t *testing.T) {
	merged := Merge(
		&Config{DisabledTools: []string{"a", "b"}},
		&Config{DisabledTools: []string{" b ", "c", ""}},
	)
	if len(merged.DisabledTools) != 3 {
		t.Errorf("DisabledTools = %v, want [a b c]", merged.DisabledTools)
	}
}
