package mcp

import (
	"context"
	"database/sql"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"glyphline/internal/config"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
// There is intentionally no review tool here; decisions come from humans
// through the CLI or the dashboard.
var toolRegistry = map[string]toolEntry{
	"health_check": {
		def:     healthCheckToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHealthCheck },
	},
	"start_work": {
		def:     startWorkToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStartWork },
	},
	"list_my_work": {
		def:     listMyWorkToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListMyWork },
	},
	"get_card_status": {
		def:     getCardStatusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGetCardStatus },
	},
	"check_dependencies": {
		def:     checkDependenciesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCheckDependencies },
	},
	"create_card": {
		def:     createCardToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCreateCard },
	},
	"update_card": {
		def:     updateCardToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUpdateCard },
	},
	"submit_card": {
		def:     submitCardToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSubmitCard },
	},
	"list_projects": {
		def:     listProjectsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListProjects },
	},
	"activate_project": {
		def:     activateProjectToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleActivateProject },
	},
	"deactivate_project": {
		def:     deactivateProjectToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDeactivateProject },
	},
	"get_project_context": {
		def:     getProjectContextToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGetProjectContext },
	},
	"create_project": {
		def:     createProjectToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCreateProject },
	},
	"archive_card": {
		def:     archiveCardToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleArchiveCard },
	},
	"list_archived_cards": {
		def:     listArchivedCardsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListArchivedCards },
	},
	"export_cards": {
		def:     exportCardsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExportCards },
	},
	"import_cards": {
		def:     importCardsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImportCards },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with Glyphline tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"glyphline",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, version string) error {
	s := NewServer(db, cfg, version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
