package ops

import (
	"database/sql"
	"strings"

	"glyphline/internal/card"
	"glyphline/internal/config"
	"glyphline/internal/db"
)

// CardSummary is the compact card listing used by work discovery, the
// review queue, and the dashboard.
type CardSummary struct {
	ID         int64       `json:"id"`
	DisplayID  string      `json:"display_id"`
	Title      string      `json:"title"`
	Status     card.Status `json:"status"`
	Project    string      `json:"project"`
	AssignedTo string      `json:"assigned_to"`
	Size       string      `json:"size"`
	LinkedTo   *int64      `json:"linked_to,omitempty"`
	HasReviews bool        `json:"has_reviews"`
	UpdatedAt  int64       `json:"updated_at"`
}

func summarize(c *card.Card, hasReviews bool) CardSummary {
	return CardSummary{
		ID:         c.ID,
		DisplayID:  card.FormatID(c.ID),
		Title:      c.Title,
		Status:     c.Status,
		Project:    c.Project,
		AssignedTo: c.AssignedTo,
		Size:       c.Size,
		LinkedTo:   c.LinkedTo,
		HasReviews: hasReviews,
		UpdatedAt:  c.UpdatedAt,
	}
}

// agentOrDefault trims the given agent identity, falling back to the
// configured default.
func agentOrDefault(cfg *config.Config, agent string) string {
	agent = strings.TrimSpace(agent)
	if agent == "" {
		return cfg.DefaultAgent
	}
	return agent
}

// visibleFilter applies the project namespace: when a project is active,
// only its cards are visible; in conversation mode all projects are.
// Namespace filtering is a read-time view, never a storage partition.
func visibleFilter(database *sql.DB, agent string) (db.CardFilter, error) {
	active, err := db.ActiveProject(database)
	if err != nil {
		return db.CardFilter{}, err
	}
	return db.CardFilter{AssignedTo: agent, Project: active}, nil
}
