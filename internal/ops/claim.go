package ops

import (
	"database/sql"
	"fmt"

	"glyphline/internal/card"
	"glyphline/internal/config"
	"glyphline/internal/db"
	"glyphline/internal/engine"
	"glyphline/internal/errors"
)

// ClaimInput contains parameters for the Claim operation.
type ClaimInput struct {
	Agent string
	// CardID claims one specific card; zero scans for the next available.
	CardID int64
}

// ClaimOutput contains the result of the Claim operation.
type ClaimOutput struct {
	NoWork       bool   `json:"no_work,omitempty"`
	CardID       int64  `json:"card_id,omitempty"`
	DisplayID    string `json:"display_id,omitempty"`
	Title        string `json:"title,omitempty"`
	BlockedCount int    `json:"blocked_count,omitempty"`
	Message      string `json:"message"`
}

// Claim starts work on a card: available → in_progress. With a specific
// CardID, losing the race to another caller surfaces as a ClaimConflict.
// Without one, the agent's visible available cards are tried in id order;
// cards claimed out from under the scan are skipped.
func Claim(database *sql.DB, cfg *config.Config, input ClaimInput) (*ClaimOutput, error) {
	agent := agentOrDefault(cfg, input.Agent)

	if input.CardID > 0 {
		c, err := db.GetCard(database, input.CardID, false)
		if err != nil {
			return nil, err
		}
		if c.AssignedTo != agent {
			err := errors.NewInvalidRequest(fmt.Sprintf("card %s is assigned to %s", card.FormatID(c.ID), c.AssignedTo))
			err.Details = map[string]any{"card_id": c.ID, "assigned_to": c.AssignedTo}
			return nil, err
		}
		if err := engine.Claim(database, c.ID); err != nil {
			return nil, err
		}
		return claimed(c), nil
	}

	filter, err := visibleFilter(database, agent)
	if err != nil {
		return nil, err
	}
	filter.Status = card.StatusAvailable
	candidates, err := db.ListCards(database, filter)
	if err != nil {
		return nil, err
	}

	blockedFilter := filter
	blockedFilter.Status = card.StatusBlocked
	blocked, err := db.ListCards(database, blockedFilter)
	if err != nil {
		return nil, err
	}

	for _, c := range candidates {
		// re-check dependencies at claim time; a stored "available" may be
		// stale if a dependency regressed since the last reconcile pass
		res, err := engine.Resolve(database, c.ID)
		if err != nil {
			continue
		}
		if res.Blocked {
			blocked = append(blocked, c)
			continue
		}

		err = engine.Claim(database, c.ID)
		if err == nil {
			return claimed(c), nil
		}
		if errors.Is(err, errors.ErrClaimConflict) || errors.Is(err, errors.ErrInvalidTransition) {
			continue // another caller got there first
		}
		return nil, err
	}

	msg := "no cards assigned to you are ready; create a card to get started"
	if len(blocked) > 0 {
		msg = fmt.Sprintf("no work available; %d card(s) blocked by dependencies", len(blocked))
	}
	return &ClaimOutput{
		NoWork:       true,
		BlockedCount: len(blocked),
		Message:      msg,
	}, nil
}

func claimed(c *card.Card) *ClaimOutput {
	return &ClaimOutput{
		CardID:    c.ID,
		DisplayID: card.FormatID(c.ID),
		Title:     c.Title,
		Message:   fmt.Sprintf("started work on card %s: %s", card.FormatID(c.ID), c.Title),
	}
}
