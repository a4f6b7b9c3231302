package ops

import (
	"database/sql"
	"fmt"

	"glyphline/internal/card"
	"glyphline/internal/engine"
)

// DependenciesInput contains parameters for the Dependencies operation.
type DependenciesInput struct {
	CardID int64
}

// DependenciesOutput is the resolver's full verdict on one card's chain.
type DependenciesOutput struct {
	CardID    int64         `json:"card_id"`
	DisplayID string        `json:"display_id"`
	Met       bool          `json:"dependencies_met"`
	Chain     []engine.Link `json:"chain,omitempty"`
	Message   string        `json:"message"`
}

// Dependencies walks a card's linked_to chain and explains each hop:
// which links are satisfied by an accepted decision and which still wait.
func Dependencies(database *sql.DB, input DependenciesInput) (*DependenciesOutput, error) {
	res, err := engine.Resolve(database, input.CardID)
	if err != nil {
		return nil, err
	}

	display := card.FormatID(input.CardID)
	msg := fmt.Sprintf("card %s has no unmet dependencies", display)
	if res.Blocked {
		for _, link := range res.Chain {
			if !link.Met {
				msg = fmt.Sprintf("card %s is blocked by card %s: %s", display, card.FormatID(link.CardID), link.Explanation)
				break
			}
		}
	}

	return &DependenciesOutput{
		CardID:    input.CardID,
		DisplayID: display,
		Met:       res.Met(),
		Chain:     res.Chain,
		Message:   msg,
	}, nil
}
