package ops

import (
	"database/sql"
	"fmt"

	"glyphline/internal/card"
	"glyphline/internal/config"
	"glyphline/internal/db"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Agent string
	// Project narrows to one project, overriding the active namespace.
	Project string
	// AllAgents lists every agent's cards, not just the caller's.
	AllAgents bool
}

// ListOutput groups an agent's visible cards by what can be done with them.
type ListOutput struct {
	Workable  []CardSummary `json:"workable"`
	InFlight  []CardSummary `json:"in_flight"`
	Blocked   []CardSummary `json:"blocked"`
	Done      []CardSummary `json:"done"`
	Project   string        `json:"project,omitempty"`
	Message   string        `json:"message"`
	TotalOpen int           `json:"total_open"`
}

// List shows the caller's current workload: cards ready to claim, cards
// already in motion, cards waiting on dependencies, and recently accepted
// work that has not been archived yet.
func List(database *sql.DB, cfg *config.Config, input ListInput) (*ListOutput, error) {
	agent := agentOrDefault(cfg, input.Agent)

	filter, err := visibleFilter(database, agent)
	if err != nil {
		return nil, err
	}
	if input.Project != "" {
		filter.Project = input.Project
	}
	if input.AllAgents {
		filter.AssignedTo = ""
	}

	cards, err := db.ListCards(database, filter)
	if err != nil {
		return nil, err
	}
	decisions, err := db.ReplayDecisions(database)
	if err != nil {
		return nil, err
	}

	out := &ListOutput{Project: filter.Project}
	for _, c := range cards {
		summary := summarize(c, decisions[c.ID] != nil)
		switch c.Status {
		case card.StatusAvailable, card.StatusNeedsRevision:
			out.Workable = append(out.Workable, summary)
		case card.StatusInProgress, card.StatusAwaitingAcceptance:
			out.InFlight = append(out.InFlight, summary)
		case card.StatusBlocked:
			out.Blocked = append(out.Blocked, summary)
		case card.StatusAccepted:
			out.Done = append(out.Done, summary)
		}
	}
	out.TotalOpen = len(out.Workable) + len(out.InFlight) + len(out.Blocked)

	switch {
	case out.TotalOpen == 0:
		out.Message = "no open cards"
	case len(out.Workable) > 0:
		out.Message = fmt.Sprintf("%d card(s) ready to work, %d in flight, %d blocked", len(out.Workable), len(out.InFlight), len(out.Blocked))
	default:
		out.Message = fmt.Sprintf("%d card(s) in flight, %d blocked", len(out.InFlight), len(out.Blocked))
	}

	return out, nil
}
