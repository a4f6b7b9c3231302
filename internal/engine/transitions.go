package engine

import (
	"database/sql"
	"time"

	"glyphline/internal/card"
	"glyphline/internal/db"
	"glyphline/internal/errors"
)

// DocReport is the documentation-collaborator's verdict on a submission
// document. The engine only consumes the result; producing it (reading the
// file) happens outside the transition.
type DocReport struct {
	Ref         string `json:"ref"`
	Exists      bool   `json:"exists"`
	Chars       int    `json:"chars"`
	HasSections bool   `json:"has_sections"`
}

// Claim attempts available → in_progress for one card. Exactly one of two
// concurrent callers wins; the loser gets a ClaimConflict if the card went
// in_progress under it, otherwise an InvalidTransition naming the actual
// status.
func Claim(database *sql.DB, cardID int64) error {
	ok, err := db.CASStatus(database, cardID, card.StatusAvailable, card.StatusInProgress)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	// lost the write; re-read to classify
	c, err := db.GetCard(database, cardID, false)
	if err != nil {
		return err
	}
	if c.Status == card.StatusInProgress {
		return errors.NewClaimConflict(cardID)
	}
	return errors.NewInvalidTransition(cardID, string(c.Status), "claim")
}

// Submit attempts in_progress → awaiting_acceptance (or needs_revision →
// awaiting_acceptance for a resubmission). The guard is the documentation
// check: the document must exist and meet the minimum content size.
// Submitting an already-awaiting card is rejected, not duplicated.
func Submit(database *sql.DB, cardID int64, doc DocReport, minDocChars int) ([]string, error) {
	if !doc.Exists {
		err := errors.NewInvalidTransition(cardID, "", "submit")
		err.Message = "documentation required before submission: " + doc.Ref
		err.Details["doc_ref"] = doc.Ref
		return nil, err
	}
	if doc.Chars < minDocChars {
		err := errors.NewValidation("documentation", "too short to submit")
		err.Details["card_id"] = cardID
		err.Details["chars"] = doc.Chars
		err.Details["min_chars"] = minDocChars
		return nil, err
	}

	var warnings []string
	if !doc.HasSections {
		warnings = append(warnings, "documentation has no section headers; consider ## Summary, ## Deliverables, ## Validation")
	}

	for _, from := range []card.Status{card.StatusInProgress, card.StatusNeedsRevision} {
		ok, err := db.CASStatus(database, cardID, from, card.StatusAwaitingAcceptance)
		if err != nil {
			return nil, err
		}
		if ok {
			return warnings, nil
		}
	}

	c, err := db.GetCard(database, cardID, false)
	if err != nil {
		return nil, err
	}
	return nil, errors.NewInvalidTransition(cardID, string(c.Status), "submit")
}

// Decide applies a human review decision: awaiting_acceptance → accepted or
// needs_revision. The status write and the ledger append commit in one
// transaction, so every transition into a review state carries exactly one
// acceptance record. Callers run Reconcile afterwards to propagate the
// decision to dependent cards.
func Decide(database *sql.DB, cardID int64, decision card.Decision, notes, reviewer string) (*card.AcceptanceRecord, error) {
	if !decision.Known() {
		return nil, errors.NewInvalidRequest("decision must be accepted or needs_revision")
	}
	if decision == card.DecisionNeedsRevision && notes == "" {
		return nil, errors.NewInvalidRequest("revision notes are required when requesting changes")
	}

	recID, err := db.NewRecordID()
	if err != nil {
		return nil, err
	}
	now := time.Now().Unix()
	rec := &card.AcceptanceRecord{
		ID:        recID,
		CardID:    cardID,
		Decision:  decision,
		Notes:     notes,
		Reviewer:  reviewer,
		CreatedAt: now,
	}

	to := card.StatusAccepted
	if decision == card.DecisionNeedsRevision {
		to = card.StatusNeedsRevision
	}

	err = db.DecideTx(database, cardID, card.StatusAwaitingAcceptance, to, rec)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidTransition) {
			// re-read for a precise message
			c, getErr := db.GetCard(database, cardID, false)
			if getErr != nil {
				return nil, getErr
			}
			return nil, errors.NewInvalidTransition(cardID, string(c.Status), "decide")
		}
		return nil, err
	}

	return rec, nil
}
