package ops

import (
	"strings"
	"testing"

	"glyphline/internal/card"
	"glyphline/internal/db"
	"glyphline/internal/errors"
)

func TestCreateRejectsBadLinks(t *testing.T) {
	database, cfg := testEnv(t)

	missing := int64(42)
	_, err := Create(database, cfg, CreateInput{
		Title:    "dangling link",
		Project:  "link_test",
		LinkedTo: &missing,
	})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected NOT_FOUND for missing link target, got %v", err)
	}

	_, err = Create(database, cfg, CreateInput{Project: "link_test"})
	if !errors.Is(err, errors.ErrValidation) {
		t.Fatalf("expected VALIDATION for empty title, got %v", err)
	}
}

func TestClaimScanReportsBlockedWork(t *testing.T) {
	database, cfg := testEnv(t)

	first, err := Create(database, cfg, CreateInput{Title: "parent", Project: "scan_test"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Create(database, cfg, CreateInput{Title: "child", Project: "scan_test", LinkedTo: &first.CardID}); err != nil {
		t.Fatal(err)
	}

	// claim the only available card, then scan again
	if _, err := Claim(database, cfg, ClaimInput{Agent: "claude"}); err != nil {
		t.Fatal(err)
	}
	out, err := Claim(database, cfg, ClaimInput{Agent: "claude"})
	if err != nil {
		t.Fatal(err)
	}
	if !out.NoWork {
		t.Fatalf("expected no work, claimed card %d", out.CardID)
	}
	if out.BlockedCount != 1 {
		t.Fatalf("BlockedCount = %d, want 1", out.BlockedCount)
	}
	if !strings.Contains(out.Message, "blocked") {
		t.Fatalf("message should mention blocked cards: %q", out.Message)
	}
}

func TestClaimRefusesOtherAgentsCard(t *testing.T) {
	database, cfg := testEnv(t)

	created, err := Create(database, cfg, CreateInput{
		Title:      "someone else's card",
		Project:    "agent_test",
		AssignedTo: "other_agent",
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = Claim(database, cfg, ClaimInput{Agent: "claude", CardID: created.CardID})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Fatalf("expected INVALID_REQUEST, got %v", err)
	}
}

func TestSubmitThinDocRejected(t *testing.T) {
	database, cfg := testEnv(t)

	created, err := Create(database, cfg, CreateInput{Title: "thin doc", Project: "doc_test"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Claim(database, cfg, ClaimInput{Agent: "claude", CardID: created.CardID}); err != nil {
		t.Fatal(err)
	}

	writeDoc(t, cfg, "claude", created.CardID, "## Done\nshort")
	_, err = Submit(database, cfg, SubmitInput{Agent: "claude", CardID: created.CardID})
	if !errors.Is(err, errors.ErrValidation) {
		t.Fatalf("expected VALIDATION for thin doc, got %v", err)
	}

	// enough content but no headers: accepted with a warning
	writeDoc(t, cfg, "claude", created.CardID, strings.Repeat("plain prose about the work. ", 15))
	out, err := Submit(database, cfg, SubmitInput{Agent: "claude", CardID: created.CardID})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Warnings) != 1 {
		t.Fatalf("expected one warning for missing headers, got %v", out.Warnings)
	}
}

func TestUpdateRelinkRejectsCycle(t *testing.T) {
	database, cfg := testEnv(t)

	a, err := Create(database, cfg, CreateInput{Title: "a", Project: "cycle_test"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Create(database, cfg, CreateInput{Title: "b", Project: "cycle_test", LinkedTo: &a.CardID})
	if err != nil {
		t.Fatal(err)
	}

	_, err = Update(database, UpdateInput{CardID: a.CardID, LinkedTo: &b.CardID})
	if !errors.Is(err, errors.ErrDependencyCycle) {
		t.Fatalf("expected DEPENDENCY_CYCLE, got %v", err)
	}

	_, err = Update(database, UpdateInput{CardID: a.CardID, LinkedTo: &b.CardID, ClearLink: true})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Fatalf("expected INVALID_REQUEST for set+clear, got %v", err)
	}

	// clearing the edge unblocks the dependent
	out, err := Update(database, UpdateInput{CardID: b.CardID, ClearLink: true})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != card.StatusAvailable {
		t.Fatalf("status after clearing link = %s, want available", out.Status)
	}
}

func TestArchiveGuards(t *testing.T) {
	database, cfg := testEnv(t)

	parent, err := Create(database, cfg, CreateInput{Title: "parent", Project: "arch_test"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Create(database, cfg, CreateInput{Title: "child", Project: "arch_test", LinkedTo: &parent.CardID}); err != nil {
		t.Fatal(err)
	}

	// only accepted cards archive
	_, err = Archive(database, ArchiveInput{CardID: parent.CardID})
	if !errors.Is(err, errors.ErrInvalidTransition) {
		t.Fatalf("expected INVALID_TRANSITION for unaccepted card, got %v", err)
	}

	if _, err := Claim(database, cfg, ClaimInput{Agent: "claude", CardID: parent.CardID}); err != nil {
		t.Fatal(err)
	}
	writeDoc(t, cfg, "claude", parent.CardID, goodDoc())
	if _, err := Submit(database, cfg, SubmitInput{Agent: "claude", CardID: parent.CardID}); err != nil {
		t.Fatal(err)
	}
	if _, err := Decide(database, cfg, DecideInput{CardID: parent.CardID, Decision: card.DecisionAccepted}); err != nil {
		t.Fatal(err)
	}

	// the child is now available and still leans on the parent
	_, err = Archive(database, ArchiveInput{CardID: parent.CardID})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Fatalf("expected INVALID_REQUEST with open dependents, got %v", err)
	}

	out, err := Archive(database, ArchiveInput{CardID: parent.CardID, Force: true})
	if err != nil {
		t.Fatal(err)
	}
	if out.RecordsArchived != 1 {
		t.Fatalf("RecordsArchived = %d, want 1", out.RecordsArchived)
	}

	// double archive is rejected, and the card leaves active listings
	_, err = Archive(database, ArchiveInput{CardID: parent.CardID})
	if !errors.Is(err, errors.ErrInvalidTransition) {
		t.Fatalf("expected INVALID_TRANSITION for double archive, got %v", err)
	}
	if _, err := db.GetCard(database, parent.CardID, false); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("archived card should be hidden from active reads, got %v", err)
	}

	archived, err := ListArchived(database, ListArchivedInput{Project: "arch_test"})
	if err != nil {
		t.Fatal(err)
	}
	if len(archived.Cards) != 1 {
		t.Fatalf("archived listing = %d cards, want 1", len(archived.Cards))
	}
}

func TestStatusIncludesChainExplanations(t *testing.T) {
	database, cfg := testEnv(t)

	parent, err := Create(database, cfg, CreateInput{Title: "parent", Project: "status_test"})
	if err != nil {
		t.Fatal(err)
	}
	child, err := Create(database, cfg, CreateInput{Title: "child", Project: "status_test", LinkedTo: &parent.CardID})
	if err != nil {
		t.Fatal(err)
	}

	out, err := Status(database, StatusInput{CardID: child.CardID})
	if err != nil {
		t.Fatal(err)
	}
	if out.DependenciesMet {
		t.Fatal("child should not have dependencies met")
	}
	if len(out.Chain) != 1 || out.Chain[0].CardID != parent.CardID {
		t.Fatalf("unexpected chain: %+v", out.Chain)
	}
	if out.Chain[0].Explanation == "" {
		t.Fatal("chain link should carry an explanation")
	}
}
