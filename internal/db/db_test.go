package db

import (
	"database/sql"
	"testing"
	"time"

	"glyphline/internal/card"
	"glyphline/internal/errors"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	database.SetMaxOpenConns(1)
	return database
}

func seedCard(t *testing.T, database *sql.DB, title string, status card.Status) *card.Card {
	t.Helper()
	now := time.Now().Unix()
	c := &card.Card{
		Title:      title,
		Project:    "db_test",
		AssignedTo: "claude",
		Status:     status,
		Size:       card.DefaultSize,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := InsertCard(database, c); err != nil {
		t.Fatalf("InsertCard failed: %v", err)
	}
	return c
}

func seedRecord(t *testing.T, database *sql.DB, cardID int64, decision card.Decision, createdAt int64) *card.AcceptanceRecord {
	t.Helper()
	id, err := NewRecordID()
	if err != nil {
		t.Fatalf("NewRecordID failed: %v", err)
	}
	rec := &card.AcceptanceRecord{
		ID:        id,
		CardID:    cardID,
		Decision:  decision,
		Reviewer:  "human",
		CreatedAt: createdAt,
	}
	if err := AppendRecord(database, rec); err != nil {
		t.Fatalf("AppendRecord failed: %v", err)
	}
	return rec
}

func TestInitIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	first, err := Init(dir)
	if err != nil {
		t.Fatalf("first Init failed: %v", err)
	}
	seedCard(t, first, "survives reopen", card.StatusAvailable)
	first.Close()

	second, err := Init(dir)
	if err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
	defer second.Close()

	c, err := GetCard(second, 1, false)
	if err != nil {
		t.Fatalf("GetCard after reopen failed: %v", err)
	}
	if c.Title != "survives reopen" {
		t.Fatalf("Title = %q", c.Title)
	}
}

func TestInsertCardKeepsExplicitID(t *testing.T) {
	database := testDB(t)

	now := time.Now().Unix()
	c := &card.Card{
		ID:         7,
		Title:      "imported",
		Project:    "db_test",
		AssignedTo: "claude",
		Status:     card.StatusAvailable,
		Size:       card.DefaultSize,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := InsertCard(database, c); err != nil {
		t.Fatalf("InsertCard failed: %v", err)
	}
	if c.ID != 7 {
		t.Fatalf("ID = %d, want 7", c.ID)
	}
	// the next auto id continues past the explicit one
	next := seedCard(t, database, "after import", card.StatusAvailable)
	if next.ID != 8 {
		t.Fatalf("next ID = %d, want 8", next.ID)
	}
}

func TestCASStatusExactlyOnce(t *testing.T) {
	database := testDB(t)
	c := seedCard(t, database, "cas", card.StatusAvailable)

	ok, err := CASStatus(database, c.ID, card.StatusAvailable, card.StatusInProgress)
	if err != nil || !ok {
		t.Fatalf("first CAS: ok=%v err=%v", ok, err)
	}
	ok, err = CASStatus(database, c.ID, card.StatusAvailable, card.StatusInProgress)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("second CAS from the same precondition should not win")
	}
}

func TestLatestDecisionTieBreak(t *testing.T) {
	database := testDB(t)
	c := seedCard(t, database, "ledger", card.StatusAwaitingAcceptance)

	// same second: the lexically greater record id wins
	at := time.Now().Unix()
	older := &card.AcceptanceRecord{
		ID: "01AAAAAAAAAAAAAAAAAAAAAAAA", CardID: c.ID,
		Decision: card.DecisionNeedsRevision, Reviewer: "human", CreatedAt: at,
	}
	newer := &card.AcceptanceRecord{
		ID: "01BBBBBBBBBBBBBBBBBBBBBBBB", CardID: c.ID,
		Decision: card.DecisionAccepted, Reviewer: "human", CreatedAt: at,
	}
	if err := AppendRecord(database, newer); err != nil {
		t.Fatal(err)
	}
	if err := AppendRecord(database, older); err != nil {
		t.Fatal(err)
	}

	got, err := LatestDecision(database, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != newer.ID {
		t.Fatalf("LatestDecision = %+v, want id %s", got, newer.ID)
	}
	if got.Decision != card.DecisionAccepted {
		t.Fatalf("Decision = %s", got.Decision)
	}
}

func TestReplayDecisionsFoldsInOrder(t *testing.T) {
	database := testDB(t)
	a := seedCard(t, database, "a", card.StatusAwaitingAcceptance)
	b := seedCard(t, database, "b", card.StatusAwaitingAcceptance)

	base := time.Now().Unix()
	seedRecord(t, database, a.ID, card.DecisionAccepted, base-10)
	seedRecord(t, database, a.ID, card.DecisionNeedsRevision, base)
	seedRecord(t, database, b.ID, card.DecisionAccepted, base)

	latest, err := ReplayDecisions(database)
	if err != nil {
		t.Fatal(err)
	}
	if latest[a.ID].Decision != card.DecisionNeedsRevision {
		t.Fatalf("card a folded to %s", latest[a.ID].Decision)
	}
	if latest[b.ID].Decision != card.DecisionAccepted {
		t.Fatalf("card b folded to %s", latest[b.ID].Decision)
	}
	if latest[99] != nil {
		t.Fatal("unknown card should have no decision")
	}
}

func TestDecideTxAtomic(t *testing.T) {
	database := testDB(t)
	c := seedCard(t, database, "atomic", card.StatusAwaitingAcceptance)

	id, err := NewRecordID()
	if err != nil {
		t.Fatal(err)
	}
	rec := &card.AcceptanceRecord{
		ID:        id,
		CardID:    c.ID,
		Decision:  card.DecisionAccepted,
		Reviewer:  "human",
		CreatedAt: time.Now().Unix(),
	}
	if err := DecideTx(database, c.ID, card.StatusAwaitingAcceptance, card.StatusAccepted, rec); err != nil {
		t.Fatalf("DecideTx failed: %v", err)
	}

	got, err := GetCard(database, c.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != card.StatusAccepted {
		t.Fatalf("Status = %s", got.Status)
	}
	if got.ReviewedAt == nil {
		t.Fatal("ReviewedAt should be stamped by the decision")
	}

	recs, err := RecordsForCard(database, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}

	// stale precondition: neither a status change nor a record
	id2, _ := NewRecordID()
	rec2 := *rec
	rec2.ID = id2
	err = DecideTx(database, c.ID, card.StatusAwaitingAcceptance, card.StatusAccepted, &rec2)
	if !errors.Is(err, errors.ErrInvalidTransition) {
		t.Fatalf("expected INVALID_TRANSITION, got %v", err)
	}
	recs, _ = RecordsForCard(database, c.ID)
	if len(recs) != 1 {
		t.Fatalf("failed decide must not append; records = %d", len(recs))
	}
}

func TestArchiveRecordsStampsAll(t *testing.T) {
	database := testDB(t)
	c := seedCard(t, database, "history", card.StatusAccepted)

	base := time.Now().Unix()
	seedRecord(t, database, c.ID, card.DecisionNeedsRevision, base-5)
	seedRecord(t, database, c.ID, card.DecisionAccepted, base)

	n, err := ArchiveRecords(database, c.ID, base+1)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("archived %d records, want 2", n)
	}

	// archived records still replay
	latest, err := LatestDecision(database, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.Decision != card.DecisionAccepted {
		t.Fatalf("LatestDecision after archive = %+v", latest)
	}
}

func TestCardFilters(t *testing.T) {
	database := testDB(t)
	a := seedCard(t, database, "a", card.StatusAvailable)
	seedCard(t, database, "b", card.StatusBlocked)

	now := time.Now().Unix()
	accepted := seedCard(t, database, "done", card.StatusAccepted)
	if ok, err := ArchiveCard(database, accepted.ID, now); err != nil || !ok {
		t.Fatalf("ArchiveCard: ok=%v err=%v", ok, err)
	}

	active, err := ListCards(database, CardFilter{Project: "db_test"})
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 2 {
		t.Fatalf("active = %d, want 2", len(active))
	}

	avail, err := ListCards(database, CardFilter{Status: card.StatusAvailable})
	if err != nil {
		t.Fatal(err)
	}
	if len(avail) != 1 || avail[0].ID != a.ID {
		t.Fatalf("available filter returned %d cards", len(avail))
	}

	archivedOnly, err := ListCards(database, CardFilter{ArchivedOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(archivedOnly) != 1 || archivedOnly[0].ID != accepted.ID {
		t.Fatalf("archived filter returned %d cards", len(archivedOnly))
	}

	everything, err := ListCards(database, CardFilter{IncludeArchived: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(everything) != 3 {
		t.Fatalf("everything = %d, want 3", len(everything))
	}
}

func TestProjectState(t *testing.T) {
	database := testDB(t)

	active, err := ActiveProject(database)
	if err != nil {
		t.Fatal(err)
	}
	if active != "" {
		t.Fatalf("fresh store has active project %q", active)
	}

	now := time.Now().Unix()
	created, err := RegisterProject(database, "alpha", "first", now)
	if err != nil || !created {
		t.Fatalf("RegisterProject: created=%v err=%v", created, err)
	}
	created, err = RegisterProject(database, "alpha", "dup", now)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Fatal("re-registering must not report created")
	}

	if err := TouchActivation(database, "alpha", now); err != nil {
		t.Fatal(err)
	}
	if err := TouchActivation(database, "alpha", now+60); err != nil {
		t.Fatal(err)
	}
	p, err := GetProject(database, "alpha")
	if err != nil {
		t.Fatal(err)
	}
	if p.ActivationCount != 2 {
		t.Fatalf("ActivationCount = %d, want 2", p.ActivationCount)
	}
	if p.FirstActivated == nil || *p.FirstActivated != now {
		t.Fatalf("FirstActivated = %v, want %d", p.FirstActivated, now)
	}
	if p.LastActivated == nil || *p.LastActivated != now+60 {
		t.Fatalf("LastActivated = %v, want %d", p.LastActivated, now+60)
	}
	if p.Description != "first" {
		t.Fatalf("Description = %q", p.Description)
	}

	if err := SetActiveProject(database, "alpha"); err != nil {
		t.Fatal(err)
	}
	active, _ = ActiveProject(database)
	if active != "alpha" {
		t.Fatalf("active = %q", active)
	}
	if err := SetActiveProject(database, ""); err != nil {
		t.Fatal(err)
	}
	active, _ = ActiveProject(database)
	if active != "" {
		t.Fatalf("active after clear = %q", active)
	}
}

func TestDiscoverProjectsMergesSources(t *testing.T) {
	database := testDB(t)

	seedCard(t, database, "orphan project card", card.StatusAvailable)
	now := time.Now().Unix()
	if _, err := RegisterProject(database, "registered_only", "", now); err != nil {
		t.Fatal(err)
	}

	names, err := DiscoverProjects(database)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Fatalf("DiscoverProjects = %v", names)
	}
}
