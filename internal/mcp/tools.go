package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Tool definitions for the agent surface. Review decisions are deliberately
// absent: accepting or revising a card is a human action, done through the
// CLI or the dashboard.

var healthCheckToolDef = mcp.NewTool("health_check",
	mcp.WithDescription("Verify the card store is reachable and report version info."),
)

var startWorkToolDef = mcp.NewTool("start_work",
	mcp.WithDescription("Claim your next available card and start working on it. "+
		"Pass card_id to claim a specific card, or omit it to scan for the next one. "+
		"Returns no_work=true when nothing is ready."),
	mcp.WithString("agent",
		mcp.Description("Agent identity claiming the card. Defaults to the configured agent."),
	),
	mcp.WithNumber("card_id",
		mcp.Description("Specific card to claim. Omit to take the next available card."),
	),
)

var listMyWorkToolDef = mcp.NewTool("list_my_work",
	mcp.WithDescription("List your cards grouped by state: ready to work, in flight, "+
		"blocked on dependencies, and accepted but not yet archived."),
	mcp.WithString("agent",
		mcp.Description("Agent identity. Defaults to the configured agent."),
	),
	mcp.WithString("project",
		mcp.Description("Narrow to one project, overriding the active namespace."),
	),
	mcp.WithBoolean("all_agents",
		mcp.Description("Include every agent's cards, not just yours."),
	),
)

var getCardStatusToolDef = mcp.NewTool("get_card_status",
	mcp.WithDescription("Full detail for one card: fields, dependency chain with "+
		"explanations, and review history."),
	mcp.WithNumber("card_id",
		mcp.Required(),
		mcp.Description("Card to inspect."),
	),
	mcp.WithBoolean("include_archived",
		mcp.Description("Also resolve archived cards."),
	),
)

var checkDependenciesToolDef = mcp.NewTool("check_dependencies",
	mcp.WithDescription("Walk a card's dependency chain and explain each link: "+
		"which are satisfied by an accepted review and which still wait."),
	mcp.WithNumber("card_id",
		mcp.Required(),
		mcp.Description("Card whose chain to resolve."),
	),
)

var createCardToolDef = mcp.NewTool("create_card",
	mcp.WithDescription("Create a new work card. The project defaults to the active "+
		"project; without one it must be given explicitly. A linked_to card blocks "+
		"this one until that card is accepted by a human reviewer."),
	mcp.WithString("title",
		mcp.Required(),
		mcp.Description("What the card asks for."),
	),
	mcp.WithString("project",
		mcp.Description("Project namespace, lowercase with underscores. Defaults to the active project."),
	),
	mcp.WithString("assigned_to",
		mcp.Description("Agent the card is for. Defaults to the configured agent."),
	),
	mcp.WithString("size",
		mcp.Description("Effort estimate, e.g. \"2-4 hours\"."),
	),
	mcp.WithArray("deliverables",
		mcp.Description("Concrete outputs the card requires."),
		mcp.Items(map[string]any{"type": "string"}),
	),
	mcp.WithArray("validation",
		mcp.Description("How the reviewer will check the work."),
		mcp.Items(map[string]any{"type": "string"}),
	),
	mcp.WithArray("context_needed",
		mcp.Description("Files or background the agent should read first."),
		mcp.Items(map[string]any{"type": "string"}),
	),
	mcp.WithArray("open_questions",
		mcp.Description("Unresolved questions to raise during the work."),
		mcp.Items(map[string]any{"type": "string"}),
	),
	mcp.WithNumber("linked_to",
		mcp.Description("Card this one depends on. Blocks until that card is accepted."),
	),
)

var updateCardToolDef = mcp.NewTool("update_card",
	mcp.WithDescription("Edit a card's descriptive fields or its dependency edge. "+
		"Status is not editable here; it moves through start_work and submit_card."),
	mcp.WithNumber("card_id",
		mcp.Required(),
		mcp.Description("Card to edit."),
	),
	mcp.WithString("title",
		mcp.Description("New title."),
	),
	mcp.WithString("size",
		mcp.Description("New effort estimate."),
	),
	mcp.WithArray("deliverables",
		mcp.Description("Replacement deliverables list."),
		mcp.Items(map[string]any{"type": "string"}),
	),
	mcp.WithArray("validation",
		mcp.Description("Replacement validation list."),
		mcp.Items(map[string]any{"type": "string"}),
	),
	mcp.WithArray("context_needed",
		mcp.Description("Replacement context list."),
		mcp.Items(map[string]any{"type": "string"}),
	),
	mcp.WithArray("open_questions",
		mcp.Description("Replacement open questions list."),
		mcp.Items(map[string]any{"type": "string"}),
	),
	mcp.WithNumber("linked_to",
		mcp.Description("New dependency edge. Cycles are rejected."),
	),
	mcp.WithBoolean("clear_link",
		mcp.Description("Remove the dependency edge instead of setting one."),
	),
)

var submitCardToolDef = mcp.NewTool("submit_card",
	mcp.WithDescription("Submit a card for human review. Requires the submission "+
		"document at the conventional workspace path (or doc_path) with real content. "+
		"Submission does not satisfy dependencies; only human acceptance does."),
	mcp.WithNumber("card_id",
		mcp.Required(),
		mcp.Description("Card to submit."),
	),
	mcp.WithString("agent",
		mcp.Description("Agent identity. Defaults to the configured agent."),
	),
	mcp.WithString("doc_path",
		mcp.Description("Override the conventional submission document path."),
	),
)

var listProjectsToolDef = mcp.NewTool("list_projects",
	mcp.WithDescription("List every known project with card counts and which one is active."),
)

var activateProjectToolDef = mcp.NewTool("activate_project",
	mcp.WithDescription("Activate a project namespace: new cards land in it and "+
		"listings show only its cards until deactivation."),
	mcp.WithString("name",
		mcp.Required(),
		mcp.Description("Project name, lowercase with underscores."),
	),
	mcp.WithString("description",
		mcp.Description("Project description, stored on first registration."),
	),
)

var deactivateProjectToolDef = mcp.NewTool("deactivate_project",
	mcp.WithDescription("Return to conversation mode: no namespace, all projects visible."),
)

var getProjectContextToolDef = mcp.NewTool("get_project_context",
	mcp.WithDescription("Report the active project and a status breakdown of its cards."),
)

var createProjectToolDef = mcp.NewTool("create_project",
	mcp.WithDescription("Register a project without activating it."),
	mcp.WithString("name",
		mcp.Required(),
		mcp.Description("Project name, lowercase with underscores."),
	),
	mcp.WithString("description",
		mcp.Description("What the project is about."),
	),
)

var archiveCardToolDef = mcp.NewTool("archive_card",
	mcp.WithDescription("Retire an accepted card and its acceptance records. "+
		"Archived cards keep their history and still satisfy dependencies."),
	mcp.WithNumber("card_id",
		mcp.Required(),
		mcp.Description("Card to archive. Must be accepted."),
	),
	mcp.WithBoolean("force",
		mcp.Description("Archive even when unaccepted cards still link to this one."),
	),
)

var listArchivedCardsToolDef = mcp.NewTool("list_archived_cards",
	mcp.WithDescription("List retired cards, optionally narrowed to one project."),
	mcp.WithString("project",
		mcp.Description("Project to narrow to."),
	),
)

var exportCardsToolDef = mcp.NewTool("export_cards",
	mcp.WithDescription("Export cards as a YAML document stream."),
	mcp.WithNumber("card_id",
		mcp.Description("Export one card. Omit for all visible cards."),
	),
	mcp.WithString("project",
		mcp.Description("Narrow to one project."),
	),
	mcp.WithBoolean("include_archived",
		mcp.Description("Also export retired cards."),
	),
)

var importCardsToolDef = mcp.NewTool("import_cards",
	mcp.WithDescription("Import a YAML document stream produced by export_cards. "+
		"Existing card ids are skipped, never overwritten."),
	mcp.WithString("yaml",
		mcp.Required(),
		mcp.Description("The YAML document stream."),
	),
)
