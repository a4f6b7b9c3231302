package ops

import (
	"database/sql"
	"fmt"

	"glyphline/internal/card"
	"glyphline/internal/config"
	"glyphline/internal/engine"
)

// DecideInput contains parameters for the Decide operation.
type DecideInput struct {
	CardID   int64
	Decision card.Decision
	Notes    string
	Reviewer string
}

// DecideOutput contains the result of the Decide operation.
type DecideOutput struct {
	CardID    int64                 `json:"card_id"`
	DisplayID string                `json:"display_id"`
	Decision  card.Decision         `json:"decision"`
	RecordID  string                `json:"record_id"`
	Unblocked []engine.StatusChange `json:"unblocked,omitempty"`
	Message   string                `json:"message"`
}

// Decide records a human review decision and propagates it: accepting a
// card may unblock its dependents, requesting revision may re-block them.
// The status change and the ledger record commit together.
func Decide(database *sql.DB, cfg *config.Config, input DecideInput) (*DecideOutput, error) {
	reviewer := input.Reviewer
	if reviewer == "" {
		reviewer = cfg.DefaultReviewer
	}

	rec, err := engine.Decide(database, input.CardID, input.Decision, input.Notes, reviewer)
	if err != nil {
		return nil, err
	}

	changes, err := engine.Reconcile(database)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("card %s accepted", card.FormatID(input.CardID))
	if input.Decision == card.DecisionNeedsRevision {
		msg = fmt.Sprintf("card %s returned for revision", card.FormatID(input.CardID))
	}
	if len(changes) > 0 {
		msg += fmt.Sprintf("; %d dependent card(s) updated", len(changes))
	}

	return &DecideOutput{
		CardID:    input.CardID,
		DisplayID: card.FormatID(input.CardID),
		Decision:  input.Decision,
		RecordID:  rec.ID,
		Unblocked: changes,
		Message:   msg,
	}, nil
}
