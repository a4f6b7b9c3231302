package ops

import (
	"database/sql"
	"fmt"

	"glyphline/internal/engine"
)

// ReconcileOutput contains the result of the Reconcile operation.
type ReconcileOutput struct {
	Changes []engine.StatusChange `json:"changes,omitempty"`
	Message string                `json:"message"`
}

// Reconcile re-derives blocked state for every active card from the
// ledger. Normally decisions propagate on their own; this is the manual
// sweep for stores touched by imports or older tooling.
func Reconcile(database *sql.DB) (*ReconcileOutput, error) {
	changes, err := engine.Reconcile(database)
	if err != nil {
		return nil, err
	}
	msg := "all cards already consistent"
	if len(changes) > 0 {
		msg = fmt.Sprintf("%d card(s) updated", len(changes))
	}
	return &ReconcileOutput{Changes: changes, Message: msg}, nil
}
