package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"glyphline/internal/config"
	"glyphline/internal/errors"
	"glyphline/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config) *Handlers {
	return &Handlers{db: db, cfg: cfg}
}

// Request types for each tool

// StartWorkRequest represents the arguments for start_work.
type StartWorkRequest struct {
	Agent  string `json:"agent,omitempty"`
	CardID int64  `json:"card_id,omitempty"`
}

// ListMyWorkRequest represents the arguments for list_my_work.
type ListMyWorkRequest struct {
	Agent     string `json:"agent,omitempty"`
	Project   string `json:"project,omitempty"`
	AllAgents bool   `json:"all_agents,omitempty"`
}

// GetCardStatusRequest represents the arguments for get_card_status.
type GetCardStatusRequest struct {
	CardID          int64 `json:"card_id"`
	IncludeArchived bool  `json:"include_archived,omitempty"`
}

// CheckDependenciesRequest represents the arguments for check_dependencies.
type CheckDependenciesRequest struct {
	CardID int64 `json:"card_id"`
}

// CreateCardRequest represents the arguments for create_card.
type CreateCardRequest struct {
	Title         string   `json:"title"`
	Project       string   `json:"project,omitempty"`
	AssignedTo    string   `json:"assigned_to,omitempty"`
	Size          string   `json:"size,omitempty"`
	Deliverables  []string `json:"deliverables,omitempty"`
	Validation    []string `json:"validation,omitempty"`
	ContextNeeded []string `json:"context_needed,omitempty"`
	OpenQuestions []string `json:"open_questions,omitempty"`
	LinkedTo      *int64   `json:"linked_to,omitempty"`
}

// UpdateCardRequest represents the arguments for update_card.
type UpdateCardRequest struct {
	CardID        int64     `json:"card_id"`
	Title         *string   `json:"title,omitempty"`
	Size          *string   `json:"size,omitempty"`
	Deliverables  *[]string `json:"deliverables,omitempty"`
	Validation    *[]string `json:"validation,omitempty"`
	ContextNeeded *[]string `json:"context_needed,omitempty"`
	OpenQuestions *[]string `json:"open_questions,omitempty"`
	LinkedTo      *int64    `json:"linked_to,omitempty"`
	ClearLink     bool      `json:"clear_link,omitempty"`
}

// SubmitCardRequest represents the arguments for submit_card.
type SubmitCardRequest struct {
	CardID  int64  `json:"card_id"`
	Agent   string `json:"agent,omitempty"`
	DocPath string `json:"doc_path,omitempty"`
}

// ProjectRequest represents the arguments for the project tools.
type ProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ArchiveCardRequest represents the arguments for archive_card.
type ArchiveCardRequest struct {
	CardID int64 `json:"card_id"`
	Force  bool  `json:"force,omitempty"`
}

// ListArchivedCardsRequest represents the arguments for list_archived_cards.
type ListArchivedCardsRequest struct {
	Project string `json:"project,omitempty"`
}

// ExportCardsRequest represents the arguments for export_cards.
type ExportCardsRequest struct {
	CardID          int64  `json:"card_id,omitempty"`
	Project         string `json:"project,omitempty"`
	IncludeArchived bool   `json:"include_archived,omitempty"`
}

// ImportCardsRequest represents the arguments for import_cards.
type ImportCardsRequest struct {
	YAML string `json:"yaml"`
}

// errorResult converts an error into an MCP error result.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if gErr, ok := err.(*errors.GlyphError); ok {
		errorObj := map[string]any{
			"code":    gErr.Code,
			"message": gErr.Message,
			"status":  gErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if gErr.Code != errors.ErrInternal && gErr.Code != errors.ErrStorageIO && gErr.Details != nil {
			errorObj["details"] = gErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult converts data into an MCP success result.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}

// HandleHealthCheck handles the health_check tool.
func (h *Handlers) HandleHealthCheck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.db.Ping(); err != nil {
		return errorResult(errors.NewStorageIO("ping", err)), nil
	}
	return successResult(map[string]any{"ok": true, "service": "glyphline"})
}

// HandleStartWork handles the start_work tool.
func (h *Handlers) HandleStartWork(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StartWorkRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Claim(h.db, h.cfg, ops.ClaimInput{
		Agent:  input.Agent,
		CardID: input.CardID,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleListMyWork handles the list_my_work tool.
func (h *Handlers) HandleListMyWork(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListMyWorkRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(h.db, h.cfg, ops.ListInput{
		Agent:     input.Agent,
		Project:   input.Project,
		AllAgents: input.AllAgents,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleGetCardStatus handles the get_card_status tool.
func (h *Handlers) HandleGetCardStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GetCardStatusRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Status(h.db, ops.StatusInput{
		CardID:          input.CardID,
		IncludeArchived: input.IncludeArchived,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCheckDependencies handles the check_dependencies tool.
func (h *Handlers) HandleCheckDependencies(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CheckDependenciesRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Dependencies(h.db, ops.DependenciesInput{CardID: input.CardID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCreateCard handles the create_card tool.
func (h *Handlers) HandleCreateCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CreateCardRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Create(h.db, h.cfg, ops.CreateInput{
		Title:         input.Title,
		Project:       input.Project,
		AssignedTo:    input.AssignedTo,
		Size:          input.Size,
		Deliverables:  input.Deliverables,
		Validation:    input.Validation,
		ContextNeeds:  input.ContextNeeded,
		OpenQuestions: input.OpenQuestions,
		LinkedTo:      input.LinkedTo,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleUpdateCard handles the update_card tool.
func (h *Handlers) HandleUpdateCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UpdateCardRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Update(h.db, ops.UpdateInput{
		CardID:        input.CardID,
		Title:         input.Title,
		Size:          input.Size,
		Deliverables:  input.Deliverables,
		Validation:    input.Validation,
		ContextNeeds:  input.ContextNeeded,
		OpenQuestions: input.OpenQuestions,
		LinkedTo:      input.LinkedTo,
		ClearLink:     input.ClearLink,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSubmitCard handles the submit_card tool.
func (h *Handlers) HandleSubmitCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SubmitCardRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Submit(h.db, h.cfg, ops.SubmitInput{
		Agent:   input.Agent,
		CardID:  input.CardID,
		DocPath: input.DocPath,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleListProjects handles the list_projects tool.
func (h *Handlers) HandleListProjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.ListProjects(h.db)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleActivateProject handles the activate_project tool.
func (h *Handlers) HandleActivateProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProjectRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ActivateProject(h.db, ops.ProjectInput{
		Name:        input.Name,
		Description: input.Description,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDeactivateProject handles the deactivate_project tool.
func (h *Handlers) HandleDeactivateProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.DeactivateProject(h.db)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleGetProjectContext handles the get_project_context tool.
func (h *Handlers) HandleGetProjectContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.ProjectContext(h.db)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCreateProject handles the create_project tool.
func (h *Handlers) HandleCreateProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProjectRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.CreateProject(h.db, ops.ProjectInput{
		Name:        input.Name,
		Description: input.Description,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleArchiveCard handles the archive_card tool.
func (h *Handlers) HandleArchiveCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ArchiveCardRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Archive(h.db, ops.ArchiveInput{
		CardID: input.CardID,
		Force:  input.Force,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleListArchivedCards handles the list_archived_cards tool.
func (h *Handlers) HandleListArchivedCards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListArchivedCardsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListArchived(h.db, ops.ListArchivedInput{Project: input.Project})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExportCards handles the export_cards tool.
func (h *Handlers) HandleExportCards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportCardsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(h.db, ops.ExportInput{
		CardID:          input.CardID,
		Project:         input.Project,
		IncludeArchived: input.IncludeArchived,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleImportCards handles the import_cards tool.
func (h *Handlers) HandleImportCards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportCardsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Import(h.db, h.cfg, ops.ImportInput{YAML: input.YAML})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}
