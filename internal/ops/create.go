package ops

import (
	"database/sql"
	"fmt"
	"time"

	"glyphline/internal/card"
	"glyphline/internal/config"
	"glyphline/internal/db"
	"glyphline/internal/engine"
	"glyphline/internal/errors"
)

// CreateInput contains parameters for the Create operation.
type CreateInput struct {
	Title         string
	Project       string // empty: default to the active project
	AssignedTo    string // empty: config default agent
	Size          string
	Deliverables  []string
	Validation    []string
	ContextNeeds  []string
	OpenQuestions []string
	LinkedTo      *int64
}

// CreateOutput contains the result of the Create operation.
type CreateOutput struct {
	CardID    int64       `json:"card_id"`
	DisplayID string      `json:"display_id"`
	Title     string      `json:"title"`
	Status    card.Status `json:"status"`
	Project   string      `json:"project"`
	Message   string      `json:"message"`
}

// Create makes a new card. The project defaults to the active project;
// without one, creation fails rather than silently defaulting. The initial
// status comes from the dependency resolver, and a linked_to edge that
// would not resolve (missing target, cycle) is rejected before any write.
func Create(database *sql.DB, cfg *config.Config, input CreateInput) (*CreateOutput, error) {
	project := input.Project
	if project == "" {
		active, err := db.ActiveProject(database)
		if err != nil {
			return nil, err
		}
		if active == "" {
			return nil, errors.NewMissingProject()
		}
		project = active
	}

	size := input.Size
	if size == "" {
		size = card.DefaultSize
	}

	c := &card.Card{
		Title:         input.Title,
		Project:       project,
		AssignedTo:    agentOrDefault(cfg, input.AssignedTo),
		Size:          size,
		Deliverables:  card.CleanList(input.Deliverables),
		Validation:    card.CleanList(input.Validation),
		ContextNeeds:  card.CleanList(input.ContextNeeds),
		OpenQuestions: card.CleanList(input.OpenQuestions),
		LinkedTo:      input.LinkedTo,
	}
	if err := card.Validate(c); err != nil {
		return nil, err
	}

	if c.LinkedTo != nil {
		if err := engine.CheckLink(database, 0, *c.LinkedTo); err != nil {
			return nil, err
		}
	}

	status, err := engine.InitialStatus(database, c.LinkedTo)
	if err != nil {
		return nil, err
	}
	c.Status = status

	now := time.Now().Unix()
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := db.InsertCard(database, c); err != nil {
		return nil, err
	}

	return &CreateOutput{
		CardID:    c.ID,
		DisplayID: card.FormatID(c.ID),
		Title:     c.Title,
		Status:    c.Status,
		Project:   c.Project,
		Message:   fmt.Sprintf("created card %s: %s", card.FormatID(c.ID), c.Title),
	}, nil
}
