package ops

import (
	"database/sql"
	"fmt"
	"os"

	"glyphline/internal/card"
	"glyphline/internal/config"
	"glyphline/internal/db"
)

// QueueInput contains parameters for the Queue operation.
type QueueInput struct {
	// Project narrows the queue to one project; empty uses the active
	// namespace, and all projects when none is active.
	Project string
}

// QueueEntry is one card waiting for a human decision.
type QueueEntry struct {
	CardSummary
	DocRef    string `json:"doc_ref"`
	DocExists bool   `json:"doc_exists"`
	// Resubmission marks cards that have been through review before.
	Resubmission bool `json:"resubmission,omitempty"`
}

// QueueOutput contains the result of the Queue operation.
type QueueOutput struct {
	Entries []QueueEntry `json:"entries"`
	Message string       `json:"message"`
}

// Queue lists every card awaiting human acceptance, oldest first, with the
// submission document each reviewer should read.
func Queue(database *sql.DB, cfg *config.Config, input QueueInput) (*QueueOutput, error) {
	project := input.Project
	if project == "" {
		active, err := db.ActiveProject(database)
		if err != nil {
			return nil, err
		}
		project = active
	}

	cards, err := db.ListCards(database, db.CardFilter{
		Project: project,
		Status:  card.StatusAwaitingAcceptance,
	})
	if err != nil {
		return nil, err
	}
	decisions, err := db.ReplayDecisions(database)
	if err != nil {
		return nil, err
	}

	out := &QueueOutput{}
	for _, c := range cards {
		doc := DocPathFor(cfg, c.AssignedTo, c.ID)
		_, statErr := os.Stat(doc)
		out.Entries = append(out.Entries, QueueEntry{
			CardSummary:  summarize(c, decisions[c.ID] != nil),
			DocRef:       doc,
			DocExists:    statErr == nil,
			Resubmission: decisions[c.ID] != nil,
		})
	}

	if len(out.Entries) == 0 {
		out.Message = "review queue is empty"
	} else {
		out.Message = fmt.Sprintf("%d card(s) awaiting acceptance", len(out.Entries))
	}
	return out, nil
}
