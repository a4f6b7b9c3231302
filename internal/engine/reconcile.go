package engine

import (
	"database/sql"
	"sort"

	"glyphline/internal/card"
	"glyphline/internal/db"
)

// StatusChange records one card moved by a reconciliation pass.
type StatusChange struct {
	CardID int64       `json:"card_id"`
	From   card.Status `json:"from"`
	To     card.Status `json:"to"`
}

// Reconcile recomputes dependency blocks for every active card and applies
// blocked/available transitions where warranted. It runs after any
// acceptance record is appended: an acceptance unblocks downstream cards,
// and a needs_revision on a previously accepted card re-blocks them,
// including cards already claimed but not yet submitted. Cards awaiting
// acceptance or accepted keep their status.
//
// Each transition is applied with a compare-and-set, so a pass racing a
// claim cannot overwrite the claim: if the status moved under us, that
// card is simply skipped and the next pass sees fresh state.
func Reconcile(database *sql.DB) ([]StatusChange, error) {
	snap, err := loadSnapshot(database)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(snap.cards))
	for id := range snap.cards {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var changes []StatusChange
	for _, id := range ids {
		c := snap.cards[id]
		if c.Archived() {
			continue
		}

		res, err := snap.resolve(id)
		if err != nil {
			// a cycle in stored data must not stall the whole pass;
			// the offending card stays as it is
			continue
		}

		var to card.Status
		switch {
		case res.Blocked && c.Status.Blockable():
			to = card.StatusBlocked
		case !res.Blocked && c.Status == card.StatusBlocked:
			to = card.StatusAvailable
		default:
			continue
		}

		ok, err := db.CASStatus(database, id, c.Status, to)
		if err != nil {
			return changes, err
		}
		if ok {
			changes = append(changes, StatusChange{CardID: id, From: c.Status, To: to})
		}
	}

	return changes, nil
}
