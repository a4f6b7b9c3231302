package ops

import (
	"database/sql"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"glyphline/internal/card"
	"glyphline/internal/db"
	"glyphline/internal/errors"
)

// cardDoc is the portable YAML shape of one card. Identifiers travel in
// their zero-padded display form so exported files read the same way the
// CLI prints them.
type cardDoc struct {
	Card          string   `yaml:"card"`
	Title         string   `yaml:"title"`
	Project       string   `yaml:"project"`
	AssignedTo    string   `yaml:"assigned_to"`
	Status        string   `yaml:"status"`
	Size          string   `yaml:"size,omitempty"`
	Deliverables  []string `yaml:"deliverables,omitempty"`
	Validation    []string `yaml:"validation,omitempty"`
	ContextNeeds  []string `yaml:"context_needed,omitempty"`
	OpenQuestions []string `yaml:"open_questions,omitempty"`
	LinkedTo      string   `yaml:"linked_to,omitempty"`
	Created       string   `yaml:"created,omitempty"`
	Archived      bool     `yaml:"archived,omitempty"`
}

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	// CardID exports one card; zero exports every visible card.
	CardID  int64
	Project string
	// IncludeArchived also exports retired cards.
	IncludeArchived bool
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	YAML    string `json:"yaml"`
	Count   int    `json:"count"`
	Message string `json:"message"`
}

// Export serializes cards as a YAML document stream, one document per
// card, suitable for review in a text editor or re-import elsewhere.
func Export(database *sql.DB, input ExportInput) (*ExportOutput, error) {
	var cards []*card.Card
	if input.CardID > 0 {
		c, err := db.GetCard(database, input.CardID, true)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	} else {
		var err error
		cards, err = db.ListCards(database, db.CardFilter{
			Project:         input.Project,
			IncludeArchived: input.IncludeArchived,
		})
		if err != nil {
			return nil, err
		}
	}

	var buf []byte
	for _, c := range cards {
		doc := cardDoc{
			Card:          card.FormatID(c.ID),
			Title:         c.Title,
			Project:       c.Project,
			AssignedTo:    c.AssignedTo,
			Status:        string(c.Status),
			Size:          c.Size,
			Deliverables:  c.Deliverables,
			Validation:    c.Validation,
			ContextNeeds:  c.ContextNeeds,
			OpenQuestions: c.OpenQuestions,
			Created:       time.Unix(c.CreatedAt, 0).UTC().Format("2006-01-02"),
			Archived:      c.Archived(),
		}
		if c.LinkedTo != nil {
			doc.LinkedTo = card.FormatID(*c.LinkedTo)
		}
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		if len(buf) > 0 {
			buf = append(buf, []byte("---\n")...)
		}
		buf = append(buf, data...)
	}

	return &ExportOutput{
		YAML:    string(buf),
		Count:   len(cards),
		Message: fmt.Sprintf("exported %d card(s)", len(cards)),
	}, nil
}
