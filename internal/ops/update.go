package ops

import (
	"database/sql"

	"glyphline/internal/card"
	"glyphline/internal/db"
	"glyphline/internal/engine"
	"glyphline/internal/errors"
)

// UpdateInput contains parameters for the Update operation.
// Nil fields are left unchanged.
type UpdateInput struct {
	CardID int64

	Title         *string
	Size          *string
	Deliverables  *[]string
	Validation    *[]string
	ContextNeeds  *[]string
	OpenQuestions *[]string

	// LinkedTo replaces the dependency edge; ClearLink removes it.
	LinkedTo  *int64
	ClearLink bool
}

// UpdateOutput contains the result of the Update operation.
type UpdateOutput struct {
	CardID    int64       `json:"card_id"`
	DisplayID string      `json:"display_id"`
	Status    card.Status `json:"status"`
	Relinked  bool        `json:"relinked"`
}

// Update edits a card's descriptive fields and, optionally, its dependency
// edge. Identity and status are not editable here; a relink re-runs cycle
// detection before anything is written, and triggers a reconciliation pass
// afterwards since the card's blocked state may have changed.
func Update(database *sql.DB, input UpdateInput) (*UpdateOutput, error) {
	if input.LinkedTo != nil && input.ClearLink {
		return nil, errors.NewInvalidRequest("cannot both set and clear linked_to")
	}

	c, err := db.GetCard(database, input.CardID, false)
	if err != nil {
		return nil, err
	}

	edited := input.ClearLink
	if input.Title != nil {
		c.Title = *input.Title
		edited = true
	}
	if input.Size != nil {
		c.Size = *input.Size
		edited = true
	}
	if input.Deliverables != nil {
		c.Deliverables = card.CleanList(*input.Deliverables)
		edited = true
	}
	if input.Validation != nil {
		c.Validation = card.CleanList(*input.Validation)
		edited = true
	}
	if input.ContextNeeds != nil {
		c.ContextNeeds = card.CleanList(*input.ContextNeeds)
		edited = true
	}
	if input.OpenQuestions != nil {
		c.OpenQuestions = card.CleanList(*input.OpenQuestions)
		edited = true
	}

	relinked := false
	if input.ClearLink {
		c.LinkedTo = nil
		relinked = true
	} else if input.LinkedTo != nil {
		if err := engine.CheckLink(database, c.ID, *input.LinkedTo); err != nil {
			return nil, err
		}
		c.LinkedTo = input.LinkedTo
		relinked = true
		edited = true
	}

	if !edited {
		return nil, errors.NewInvalidRequest("at least one editable field must be provided")
	}

	if err := card.Validate(c); err != nil {
		return nil, err
	}

	if err := db.UpdateCardFields(database, c); err != nil {
		return nil, err
	}

	if relinked {
		if _, err := engine.Reconcile(database); err != nil {
			return nil, err
		}
		// status may have moved during reconciliation
		if fresh, err := db.GetCard(database, c.ID, false); err == nil {
			c.Status = fresh.Status
		}
	}

	return &UpdateOutput{
		CardID:    c.ID,
		DisplayID: card.FormatID(c.ID),
		Status:    c.Status,
		Relinked:  relinked,
	}, nil
}
