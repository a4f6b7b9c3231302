package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"glyphline/internal/config"
	"glyphline/internal/db"
)

// testSetup creates a temporary database and config for testing.
func testSetup(t *testing.T) (*sql.DB, *config.Config) {
	t.Helper()

	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	database.SetMaxOpenConns(1)

	cfg := config.DefaultConfig()
	cfg.WorkspacesDir = t.TempDir()
	return database, cfg
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// resultPayload unmarshals the text content of a tool result.
func resultPayload(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", result.Content[0])
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	return payload
}

func errorCode(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if !result.IsError {
		t.Fatal("expected an error result")
	}
	payload := resultPayload(t, result)
	errObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatalf("error payload missing: %v", payload)
	}
	code, _ := errObj["code"].(string)
	return code
}

func TestNoReviewToolRegistered(t *testing.T) {
	for _, name := range AllToolNames() {
		if strings.Contains(name, "review") || strings.Contains(name, "decide") ||
			strings.Contains(name, "accept") {
			t.Fatalf("agent surface must not expose a review tool, found %q", name)
		}
	}
}

func TestValidateDisabledTools(t *testing.T) {
	unknown := ValidateDisabledTools([]string{"create_card", "no_such_tool"})
	if len(unknown) != 1 || unknown[0] != "no_such_tool" {
		t.Fatalf("unknown = %v", unknown)
	}
}

func TestHandleCreateAndStatus(t *testing.T) {
	database, cfg := testSetup(t)
	h := NewHandlers(database, cfg)
	ctx := context.Background()

	result, err := h.HandleCreateCard(ctx, makeRequest(map[string]any{
		"title":        "first card",
		"project":      "mcp_test",
		"deliverables": []any{"working code"},
	}))
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("create failed: %v", resultPayload(t, result))
	}
	created := resultPayload(t, result)
	if created["status"] != "available" {
		t.Fatalf("status = %v", created["status"])
	}

	result, err = h.HandleCreateCard(ctx, makeRequest(map[string]any{
		"title":     "second card",
		"project":   "mcp_test",
		"linked_to": 1,
	}))
	if err != nil {
		t.Fatal(err)
	}
	linked := resultPayload(t, result)
	if linked["status"] != "blocked" {
		t.Fatalf("linked status = %v", linked["status"])
	}

	result, err = h.HandleGetCardStatus(ctx, makeRequest(map[string]any{"card_id": 2}))
	if err != nil {
		t.Fatal(err)
	}
	status := resultPayload(t, result)
	if status["dependencies_met"] != false {
		t.Fatalf("dependencies_met = %v", status["dependencies_met"])
	}
}

func TestHandleCreateWithoutProject(t *testing.T) {
	database, cfg := testSetup(t)
	h := NewHandlers(database, cfg)

	result, err := h.HandleCreateCard(context.Background(), makeRequest(map[string]any{
		"title": "orphan",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if code := errorCode(t, result); code != "MISSING_PROJECT" {
		t.Fatalf("code = %q, want MISSING_PROJECT", code)
	}
}

func TestHandleStartWorkScan(t *testing.T) {
	database, cfg := testSetup(t)
	h := NewHandlers(database, cfg)
	ctx := context.Background()

	// nothing to do yet
	result, err := h.HandleStartWork(ctx, makeRequest(map[string]any{}))
	if err != nil {
		t.Fatal(err)
	}
	payload := resultPayload(t, result)
	if payload["no_work"] != true {
		t.Fatalf("expected no_work, got %v", payload)
	}

	if _, err := h.HandleCreateCard(ctx, makeRequest(map[string]any{
		"title":   "claimable",
		"project": "mcp_test",
	})); err != nil {
		t.Fatal(err)
	}

	result, err = h.HandleStartWork(ctx, makeRequest(map[string]any{}))
	if err != nil {
		t.Fatal(err)
	}
	payload = resultPayload(t, result)
	if payload["card_id"] != float64(1) {
		t.Fatalf("claimed card_id = %v", payload["card_id"])
	}

	// a second claim on the same card conflicts
	result, err = h.HandleStartWork(ctx, makeRequest(map[string]any{"card_id": 1}))
	if err != nil {
		t.Fatal(err)
	}
	if code := errorCode(t, result); code != "INVALID_TRANSITION" && code != "CLAIM_CONFLICT" {
		t.Fatalf("code = %q", code)
	}
}

func TestHandleProjectTools(t *testing.T) {
	database, cfg := testSetup(t)
	h := NewHandlers(database, cfg)
	ctx := context.Background()

	result, err := h.HandleActivateProject(ctx, makeRequest(map[string]any{
		"name": "Bad Name",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if code := errorCode(t, result); code != "VALIDATION" {
		t.Fatalf("code = %q, want VALIDATION", code)
	}

	result, err = h.HandleActivateProject(ctx, makeRequest(map[string]any{
		"name": "good_name",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("activate failed: %v", resultPayload(t, result))
	}

	result, err = h.HandleGetProjectContext(ctx, makeRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	payload := resultPayload(t, result)
	if payload["active_project"] != "good_name" {
		t.Fatalf("active_project = %v", payload["active_project"])
	}

	if _, err := h.HandleDeactivateProject(ctx, makeRequest(nil)); err != nil {
		t.Fatal(err)
	}
	result, err = h.HandleGetProjectContext(ctx, makeRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	payload = resultPayload(t, result)
	if _, has := payload["active_project"]; has {
		t.Fatalf("active_project should be absent after deactivation: %v", payload)
	}
}

func TestServerHonorsDisabledTools(t *testing.T) {
	database, cfg := testSetup(t)
	cfg.DisabledTools = []string{"import_cards", "export_cards"}

	s := NewServer(database, cfg, "test")
	if s == nil {
		t.Fatal("NewServer returned nil")
	}
}
