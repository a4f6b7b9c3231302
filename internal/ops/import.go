package ops

import (
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"glyphline/internal/card"
	"glyphline/internal/config"
	"glyphline/internal/db"
	"glyphline/internal/engine"
	"glyphline/internal/errors"
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	// YAML is a document stream in the Export format.
	YAML string
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported []int64 `json:"imported"`
	Skipped  []int64 `json:"skipped,omitempty"`
	Message  string  `json:"message"`
}

// Import loads exported cards back into the store, keeping their
// identifiers. Cards whose id already exists are skipped rather than
// overwritten. Every linked_to edge in the stream is checked against the
// merged graph (stored cards plus the batch itself) before anything is
// written: a dangling target or a cycle rejects the whole import. A
// reconcile pass afterwards settles blocked state for whatever the
// import linked together.
func Import(database *sql.DB, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	dec := yaml.NewDecoder(strings.NewReader(input.YAML))

	var batch []*card.Card
	for {
		var doc cardDoc
		err := dec.Decode(&doc)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewValidation("yaml", err.Error())
		}

		c, err := cardFromDoc(cfg, doc)
		if err != nil {
			return nil, err
		}
		batch = append(batch, c)
	}

	if err := checkImportLinks(database, batch); err != nil {
		return nil, err
	}

	out := &ImportOutput{}
	for _, c := range batch {
		if _, err := db.GetCard(database, c.ID, true); err == nil {
			out.Skipped = append(out.Skipped, c.ID)
			continue
		} else if !errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}

		if err := db.InsertCard(database, c); err != nil {
			return nil, err
		}
		out.Imported = append(out.Imported, c.ID)
	}

	if _, err := engine.Reconcile(database); err != nil {
		return nil, err
	}

	out.Message = fmt.Sprintf("imported %d card(s), skipped %d", len(out.Imported), len(out.Skipped))
	return out, nil
}

// checkImportLinks walks every batch card's parent chain through the
// merged graph. For ids present both in the store and in the batch the
// stored edge wins, matching the skip on insert.
func checkImportLinks(database *sql.DB, batch []*card.Card) error {
	stored, err := db.ListCards(database, db.CardFilter{IncludeArchived: true})
	if err != nil {
		return err
	}
	parents := make(map[int64]*int64, len(stored)+len(batch))
	for _, c := range stored {
		parents[c.ID] = c.LinkedTo
	}
	for _, c := range batch {
		if _, exists := parents[c.ID]; !exists {
			parents[c.ID] = c.LinkedTo
		}
	}

	for _, c := range batch {
		link := parents[c.ID]
		visited := map[int64]bool{c.ID: true}
		trail := []int64{c.ID}
		for link != nil {
			parentID := *link
			trail = append(trail, parentID)
			if visited[parentID] {
				return errors.NewDependencyCycle(c.ID, trail)
			}
			visited[parentID] = true
			next, ok := parents[parentID]
			if !ok {
				return errors.NewNotFound("card", card.FormatID(parentID))
			}
			link = next
		}
	}
	return nil
}

func cardFromDoc(cfg *config.Config, doc cardDoc) (*card.Card, error) {
	id, err := card.ParseID(doc.Card)
	if err != nil {
		return nil, err
	}

	status := card.Status(doc.Status)
	if doc.Status == "" {
		status = card.StatusAvailable
	}

	now := time.Now().Unix()
	c := &card.Card{
		ID:            id,
		Title:         doc.Title,
		Project:       doc.Project,
		AssignedTo:    doc.AssignedTo,
		Status:        status,
		Size:          doc.Size,
		Deliverables:  card.CleanList(doc.Deliverables),
		Validation:    card.CleanList(doc.Validation),
		ContextNeeds:  card.CleanList(doc.ContextNeeds),
		OpenQuestions: card.CleanList(doc.OpenQuestions),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if c.Size == "" {
		c.Size = card.DefaultSize
	}
	if c.AssignedTo == "" {
		c.AssignedTo = cfg.DefaultAgent
	}
	if doc.LinkedTo != "" {
		parent, err := card.ParseID(doc.LinkedTo)
		if err != nil {
			return nil, err
		}
		c.LinkedTo = &parent
	}
	if doc.Created != "" {
		if t, err := time.Parse("2006-01-02", doc.Created); err == nil {
			c.CreatedAt = t.Unix()
		}
	}
	if doc.Archived {
		archivedAt := now
		c.ArchivedAt = &archivedAt
	}

	if err := card.Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}
