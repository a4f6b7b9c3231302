package card

// Status is a card's lifecycle state.
type Status string

const (
	StatusAvailable          Status = "available"
	StatusBlocked            Status = "blocked"
	StatusInProgress         Status = "in_progress"
	StatusAwaitingAcceptance Status = "awaiting_acceptance"
	StatusAccepted           Status = "accepted"
	StatusNeedsRevision      Status = "needs_revision"
)

// Known reports whether s is one of the defined lifecycle statuses.
func (s Status) Known() bool {
	switch s {
	case StatusAvailable, StatusBlocked, StatusInProgress,
		StatusAwaitingAcceptance, StatusAccepted, StatusNeedsRevision:
		return true
	}
	return false
}

// Blockable reports whether a card in this status is reverted to blocked
// when an upstream dependency regresses. Cards already under review
// (awaiting_acceptance) or accepted keep their status; the review decision
// is still meaningful for work that was finished before the regression.
func (s Status) Blockable() bool {
	switch s {
	case StatusAvailable, StatusInProgress, StatusNeedsRevision:
		return true
	}
	return false
}

// Card represents a unit of work with a lifecycle status and an optional
// single dependency edge (LinkedTo).
type Card struct {
	// ID is a sequential integer, unique and immutable once created
	ID int64

	Title      string
	Project    string
	AssignedTo string
	Status     Status

	// Size is a free-text effort estimate, e.g. "2-4 hours"
	Size string

	Deliverables  []string
	Validation    []string
	ContextNeeds  []string
	OpenQuestions []string

	// LinkedTo is the id of the prerequisite card, if any. The card is
	// gated on that card's acceptance, not its completion.
	LinkedTo *int64

	CreatedAt  int64
	UpdatedAt  int64
	ReviewedAt *int64

	// ArchivedAt is set when the card is relocated out of the active set
	ArchivedAt *int64
}

// Archived reports whether the card has been relocated to the archive.
func (c *Card) Archived() bool {
	return c.ArchivedAt != nil
}

// Decision is a human review outcome.
type Decision string

const (
	DecisionAccepted      Decision = "accepted"
	DecisionNeedsRevision Decision = "needs_revision"
)

// Known reports whether d is a defined review decision.
func (d Decision) Known() bool {
	return d == DecisionAccepted || d == DecisionNeedsRevision
}

// AcceptanceRecord is one human review decision for a card. Records are
// append-only: archival may relocate them but never rewrites or deletes.
type AcceptanceRecord struct {
	// ID is a ULID; it orders records created in the same second
	ID string

	CardID   int64
	Decision Decision
	Notes    string
	Reviewer string

	// CreatedAt is the decision timestamp; the latest record per card is
	// the card's current decision
	CreatedAt int64

	ArchivedAt *int64
}
