package ops

import (
	"database/sql"

	"glyphline/internal/card"
	"glyphline/internal/db"
	"glyphline/internal/engine"
)

// StatusInput contains parameters for the Status operation.
type StatusInput struct {
	CardID          int64
	IncludeArchived bool
}

// ReviewNote is one past decision shown with a card's status.
type ReviewNote struct {
	Decision  card.Decision `json:"decision"`
	Notes     string        `json:"notes,omitempty"`
	Reviewer  string        `json:"reviewer"`
	DecidedAt int64         `json:"decided_at"`
}

// StatusOutput is the card view with its resolved dependency state.
type StatusOutput struct {
	CardSummary
	Deliverables    []string      `json:"deliverables,omitempty"`
	Validation      []string      `json:"validation,omitempty"`
	ContextNeeds    []string      `json:"context_needs,omitempty"`
	OpenQuestions   []string      `json:"open_questions,omitempty"`
	Archived        bool          `json:"archived,omitempty"`
	DependenciesMet bool          `json:"dependencies_met"`
	Chain           []engine.Link `json:"dependency_chain,omitempty"`
	LatestDecision  *ReviewNote   `json:"latest_decision,omitempty"`
	ReviewHistory   []ReviewNote  `json:"review_history,omitempty"`
}

// Status returns everything known about one card: stored fields, the
// resolver's current verdict on its dependency chain, and its review
// history from the ledger.
func Status(database *sql.DB, input StatusInput) (*StatusOutput, error) {
	c, err := db.GetCard(database, input.CardID, input.IncludeArchived)
	if err != nil {
		return nil, err
	}

	res, err := engine.Resolve(database, c.ID)
	if err != nil {
		return nil, err
	}

	recs, err := db.RecordsForCard(database, c.ID)
	if err != nil {
		return nil, err
	}

	out := &StatusOutput{
		CardSummary:     summarize(c, len(recs) > 0),
		Deliverables:    c.Deliverables,
		Validation:      c.Validation,
		ContextNeeds:    c.ContextNeeds,
		OpenQuestions:   c.OpenQuestions,
		Archived:        c.Archived(),
		DependenciesMet: res.Met(),
		Chain:           res.Chain,
	}

	for _, rec := range recs {
		out.ReviewHistory = append(out.ReviewHistory, ReviewNote{
			Decision:  rec.Decision,
			Notes:     rec.Notes,
			Reviewer:  rec.Reviewer,
			DecidedAt: rec.CreatedAt,
		})
	}
	if n := len(out.ReviewHistory); n > 0 {
		out.LatestDecision = &out.ReviewHistory[n-1]
	}

	return out, nil
}
