// Package engine implements the card lifecycle state machine and the
// dependency resolver that gates it. A card's effective status is always
// recomputed from current storage state: the resolver holds no cache, so a
// dependency that regresses after re-review propagates to its dependents on
// the next resolution pass without manual invalidation.
package engine

import (
	"database/sql"

	"glyphline/internal/card"
	"glyphline/internal/db"
	"glyphline/internal/errors"
)

// Link describes one edge in a card's dependency chain.
type Link struct {
	CardID      int64       `json:"card_id"`
	Title       string      `json:"title"`
	Status      card.Status `json:"status"`
	Accepted    bool        `json:"accepted"`
	Met         bool        `json:"met"`
	Missing     bool        `json:"missing,omitempty"`
	Explanation string      `json:"explanation"`
}

// Resolution is the outcome of resolving a card's dependency chain.
type Resolution struct {
	Blocked bool   `json:"blocked"`
	Chain   []Link `json:"chain"`
}

// Met reports whether every dependency in the chain is satisfied.
func (r *Resolution) Met() bool {
	return !r.Blocked
}

// snapshot is one consistent read of cards and ledger state. Every engine
// operation loads a fresh snapshot before deciding a transition; nothing is
// shared across callers.
type snapshot struct {
	cards     map[int64]*card.Card
	decisions map[int64]*card.AcceptanceRecord
}

func loadSnapshot(database *sql.DB) (*snapshot, error) {
	all, err := db.ListCards(database, db.CardFilter{IncludeArchived: true})
	if err != nil {
		return nil, err
	}
	decisions, err := db.ReplayDecisions(database)
	if err != nil {
		return nil, err
	}

	cards := make(map[int64]*card.Card, len(all))
	for _, c := range all {
		cards[c.ID] = c
	}
	return &snapshot{cards: cards, decisions: decisions}, nil
}

// accepted reports whether a card's latest ledger decision is accepted.
// Work being merely submitted does not count; only a human acceptance does.
func (s *snapshot) accepted(id int64) bool {
	rec, ok := s.decisions[id]
	return ok && rec.Decision == card.DecisionAccepted
}

// resolve walks the linked_to chain from the given card to a fixed point.
// The card is blocked if any ancestor is unaccepted. Cycle detection runs
// with a visited set so corrupt link data surfaces as an error instead of
// an infinite walk.
func (s *snapshot) resolve(id int64) (*Resolution, error) {
	res := &Resolution{}
	visited := map[int64]bool{id: true}
	trail := []int64{id}

	c, ok := s.cards[id]
	if !ok {
		return nil, errors.NewNotFound("card", card.FormatID(id))
	}

	for c.LinkedTo != nil {
		parentID := *c.LinkedTo
		if visited[parentID] {
			return nil, errors.NewDependencyCycle(id, append(trail, parentID))
		}
		visited[parentID] = true
		trail = append(trail, parentID)

		parent, exists := s.cards[parentID]
		link := Link{CardID: parentID}

		switch {
		case !exists:
			link.Missing = true
			link.Explanation = "linked card not found"
		case s.accepted(parentID):
			link.Title = parent.Title
			link.Status = parent.Status
			link.Accepted = true
			link.Met = true
			link.Explanation = "accepted by human reviewer"
		case parent.Status == card.StatusAwaitingAcceptance:
			link.Title = parent.Title
			link.Status = parent.Status
			link.Explanation = "submitted but awaiting human acceptance"
		default:
			link.Title = parent.Title
			link.Status = parent.Status
			link.Explanation = "card status is " + string(parent.Status) + " but not accepted"
		}

		res.Chain = append(res.Chain, link)
		if !link.Met {
			res.Blocked = true
		}
		if !exists {
			break
		}
		c = parent
	}

	return res, nil
}

// Resolve computes a card's dependency resolution from current storage
// state. Archived cards still resolve: an accepted dependency stays
// satisfied after archival because the ledger history is preserved.
func Resolve(database *sql.DB, id int64) (*Resolution, error) {
	snap, err := loadSnapshot(database)
	if err != nil {
		return nil, err
	}
	return snap.resolve(id)
}

// InitialStatus determines the status a new card is created in, given its
// prospective dependency edge.
func InitialStatus(database *sql.DB, linkedTo *int64) (card.Status, error) {
	if linkedTo == nil {
		return card.StatusAvailable, nil
	}
	snap, err := loadSnapshot(database)
	if err != nil {
		return "", err
	}
	if _, ok := snap.cards[*linkedTo]; !ok {
		return "", errors.NewNotFound("card", card.FormatID(*linkedTo))
	}
	if snap.accepted(*linkedTo) {
		return card.StatusAvailable, nil
	}
	// the parent chain above an unaccepted parent does not matter yet:
	// the card is blocked either way
	return card.StatusBlocked, nil
}

// CheckLink validates a prospective linked_to edge for a card: the target
// must exist, must not be archived-with-unresolved-history, and linking
// must not close a cycle. Runs before any write (fail-closed).
func CheckLink(database *sql.DB, cardID int64, linkedTo int64) error {
	if cardID != 0 && cardID == linkedTo {
		return errors.NewValidation("linked_to", "card cannot depend on itself")
	}
	snap, err := loadSnapshot(database)
	if err != nil {
		return err
	}
	target, ok := snap.cards[linkedTo]
	if !ok {
		return errors.NewNotFound("card", card.FormatID(linkedTo))
	}
	if target.Archived() && !snap.accepted(linkedTo) {
		return errors.NewValidation("linked_to", "target card is archived without an accepted decision")
	}

	// walk upward from the target; reaching cardID closes a cycle
	trail := []int64{cardID, linkedTo}
	visited := map[int64]bool{linkedTo: true}
	c := target
	for c.LinkedTo != nil {
		parentID := *c.LinkedTo
		if parentID == cardID {
			return errors.NewDependencyCycle(cardID, append(trail, parentID))
		}
		if visited[parentID] {
			// pre-existing cycle in stored data; still refuse the link
			return errors.NewDependencyCycle(cardID, append(trail, parentID))
		}
		visited[parentID] = true
		trail = append(trail, parentID)
		parent, ok := snap.cards[parentID]
		if !ok {
			break
		}
		c = parent
	}
	return nil
}
