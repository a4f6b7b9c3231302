package ops

import (
	"database/sql"
	"fmt"
	"time"

	"glyphline/internal/card"
	"glyphline/internal/db"
	"glyphline/internal/errors"
)

// ArchiveInput contains parameters for the Archive operation.
type ArchiveInput struct {
	CardID int64
	// Force archives even when active cards still link to this one.
	Force bool
}

// ArchiveOutput contains the result of the Archive operation.
type ArchiveOutput struct {
	CardID          int64  `json:"card_id"`
	DisplayID       string `json:"display_id"`
	RecordsArchived int    `json:"records_archived"`
	Message         string `json:"message"`
}

// Archive retires an accepted card and its acceptance records. Archival is
// relocation, never deletion: the card keeps its history and still answers
// dependency queries from anything that links to it.
func Archive(database *sql.DB, input ArchiveInput) (*ArchiveOutput, error) {
	c, err := db.GetCard(database, input.CardID, true)
	if err != nil {
		return nil, err
	}
	if c.Archived() {
		return nil, errors.NewInvalidTransition(c.ID, string(c.Status), "archive")
	}
	if c.Status != card.StatusAccepted {
		err := errors.NewInvalidTransition(c.ID, string(c.Status), "archive")
		err.Message = fmt.Sprintf("only accepted cards can be archived; card %s is %s", card.FormatID(c.ID), c.Status)
		return nil, err
	}

	if !input.Force {
		dependents, err := db.ActiveDependents(database, c.ID)
		if err != nil {
			return nil, err
		}
		// accepted dependents are done with the link; an archived parent
		// still answers their dependency queries either way
		var open []string
		for _, d := range dependents {
			if d.Status != card.StatusAccepted {
				open = append(open, card.FormatID(d.ID))
			}
		}
		if len(open) > 0 {
			reqErr := errors.NewInvalidRequest(fmt.Sprintf("active card(s) still link to card %s", card.FormatID(c.ID)))
			reqErr.Details = map[string]any{"card_id": c.ID, "dependents": open}
			return nil, reqErr
		}
	}

	now := time.Now().Unix()
	ok, err := db.ArchiveCard(database, c.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// lost a race to a concurrent archive or revision
		c, err = db.GetCard(database, c.ID, true)
		if err != nil {
			return nil, err
		}
		return nil, errors.NewInvalidTransition(c.ID, string(c.Status), "archive")
	}

	count, err := db.ArchiveRecords(database, c.ID, now)
	if err != nil {
		return nil, err
	}

	return &ArchiveOutput{
		CardID:          c.ID,
		DisplayID:       card.FormatID(c.ID),
		RecordsArchived: count,
		Message:         fmt.Sprintf("card %s archived with %d acceptance record(s)", card.FormatID(c.ID), count),
	}, nil
}

// ListArchivedInput contains parameters for the ListArchived operation.
type ListArchivedInput struct {
	Project string
}

// ListArchivedOutput contains the result of the ListArchived operation.
type ListArchivedOutput struct {
	Cards   []CardSummary `json:"cards"`
	Message string        `json:"message"`
}

// ListArchived returns retired cards, optionally narrowed to one project.
func ListArchived(database *sql.DB, input ListArchivedInput) (*ListArchivedOutput, error) {
	cards, err := db.ListCards(database, db.CardFilter{
		Project:      input.Project,
		ArchivedOnly: true,
	})
	if err != nil {
		return nil, err
	}
	decisions, err := db.ReplayDecisions(database)
	if err != nil {
		return nil, err
	}

	out := &ListArchivedOutput{}
	for _, c := range cards {
		out.Cards = append(out.Cards, summarize(c, decisions[c.ID] != nil))
	}
	if len(out.Cards) == 0 {
		out.Message = "no archived cards"
	} else {
		out.Message = fmt.Sprintf("%d archived card(s)", len(out.Cards))
	}
	return out, nil
}
