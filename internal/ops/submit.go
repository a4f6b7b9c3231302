package ops

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"glyphline/internal/card"
	"glyphline/internal/config"
	"glyphline/internal/db"
	"glyphline/internal/engine"
	"glyphline/internal/errors"
)

// SubmitInput contains parameters for the Submit operation.
type SubmitInput struct {
	Agent  string
	CardID int64
	// DocPath overrides the conventional workspace path for the
	// submission document.
	DocPath string
}

// SubmitOutput contains the result of the Submit operation.
type SubmitOutput struct {
	CardID    int64    `json:"card_id"`
	DisplayID string   `json:"display_id"`
	DocRef    string   `json:"doc_ref"`
	Warnings  []string `json:"warnings,omitempty"`
	Message   string   `json:"message"`
}

// DocPathFor returns the conventional submission document path for a card:
// <workspaces>/<agent>/output_<id>.md with the zero-padded display id.
func DocPathFor(cfg *config.Config, agent string, cardID int64) string {
	return filepath.Join(cfg.WorkspacesDir, agent, "output_"+card.FormatID(cardID)+".md")
}

// InspectDoc reads a submission document and reports what the transition
// guard needs to know about it. A missing file is a report, not an error.
func InspectDoc(path string) (engine.DocReport, error) {
	report := engine.DocReport{Ref: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return report, nil
		}
		return report, errors.NewStorageIO("read documentation", err)
	}
	content := string(data)
	report.Exists = true
	report.Chars = len(strings.TrimSpace(content))
	report.HasSections = strings.Contains(content, "##")
	return report, nil
}

// Submit hands a card over for human review: in_progress (or
// needs_revision, for resubmissions) → awaiting_acceptance. The submission
// document must exist and carry real content; submission never satisfies a
// dependency by itself.
func Submit(database *sql.DB, cfg *config.Config, input SubmitInput) (*SubmitOutput, error) {
	agent := agentOrDefault(cfg, input.Agent)

	c, err := db.GetCard(database, input.CardID, false)
	if err != nil {
		return nil, err
	}
	if c.AssignedTo != agent {
		err := errors.NewInvalidRequest(fmt.Sprintf("card %s is assigned to %s", card.FormatID(c.ID), c.AssignedTo))
		err.Details = map[string]any{"card_id": c.ID, "assigned_to": c.AssignedTo}
		return nil, err
	}

	docPath := input.DocPath
	if docPath == "" {
		docPath = DocPathFor(cfg, agent, c.ID)
	}
	report, err := InspectDoc(docPath)
	if err != nil {
		return nil, err
	}

	warnings, err := engine.Submit(database, c.ID, report, cfg.MinDocChars)
	if err != nil {
		return nil, err
	}

	return &SubmitOutput{
		CardID:    c.ID,
		DisplayID: card.FormatID(c.ID),
		DocRef:    docPath,
		Warnings:  warnings,
		Message:   fmt.Sprintf("card %s submitted for review", card.FormatID(c.ID)),
	}, nil
}
