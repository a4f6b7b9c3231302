package db

import (
	"crypto/rand"
	"database/sql"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"glyphline/internal/card"
	"glyphline/internal/errors"
)

const recordColumns = `id, card_id, decision, notes, reviewer, created_at, archived_at`

var (
	recordEntropyMu sync.Mutex
	recordEntropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewRecordID generates a ULID for an acceptance record. IDs from one
// process are strictly increasing, so the ULID doubles as a deterministic
// tie-break when two records carry the same timestamp.
func NewRecordID() (string, error) {
	recordEntropyMu.Lock()
	defer recordEntropyMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), recordEntropy)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return id.String(), nil
}

// AppendRecord adds one acceptance record to the ledger. Records are never
// updated or deleted afterwards.
func AppendRecord(db *sql.DB, rec *card.AcceptanceRecord) error {
	return appendRecordExec(db, rec)
}

// execer abstracts *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func appendRecordExec(e execer, rec *card.AcceptanceRecord) error {
	_, err := e.Exec(`
		INSERT INTO acceptance_records (id, card_id, decision, notes, reviewer, created_at, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CardID, string(rec.Decision), nullIfEmpty(rec.Notes),
		rec.Reviewer, rec.CreatedAt, toNullInt64(rec.ArchivedAt),
	)
	if err != nil {
		return errors.NewStorageIO("append acceptance record", err)
	}
	return nil
}

// DecideTx commits a review decision atomically: the card's status moves
// from the expected state and the acceptance record is appended, or neither
// happens. A failed status precondition rolls back and surfaces as an
// InvalidTransition for the caller to classify.
func DecideTx(database *sql.DB, cardID int64, from, to card.Status, rec *card.AcceptanceRecord) error {
	tx, err := database.Begin()
	if err != nil {
		return errors.NewStorageIO("begin decision", err)
	}
	defer tx.Rollback()

	ok, err := casStatusReviewedTx(tx, cardID, from, to, rec.CreatedAt)
	if err != nil {
		return errors.NewStorageIO("decide status", err)
	}
	if !ok {
		return errors.NewInvalidTransition(cardID, "", "decide")
	}

	if err := appendRecordExec(tx, rec); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStorageIO("commit decision", err)
	}
	return nil
}

// LatestDecision returns the most recent acceptance record for a card, or
// nil when no decision exists yet. Archived records still count: an
// accepted dependency stays resolved after the card is archived.
func LatestDecision(db *sql.DB, cardID int64) (*card.AcceptanceRecord, error) {
	row := db.QueryRow(`
		SELECT `+recordColumns+` FROM acceptance_records
		WHERE card_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, cardID)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStorageIO("latest decision", err)
	}
	return rec, nil
}

// ReplayDecisions folds the full ledger in (created_at, id) order and
// returns the latest record per card. Replaying from scratch reproduces
// exactly the live-appended result, which makes the ledger, not any
// in-memory state, authoritative after a crash.
func ReplayDecisions(db *sql.DB) (map[int64]*card.AcceptanceRecord, error) {
	rows, err := db.Query(`
		SELECT ` + recordColumns + ` FROM acceptance_records
		ORDER BY created_at, id`)
	if err != nil {
		return nil, errors.NewStorageIO("replay ledger", err)
	}
	defer rows.Close()

	latest := make(map[int64]*card.AcceptanceRecord)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.NewStorageIO("replay ledger", err)
		}
		latest[rec.CardID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageIO("replay ledger", err)
	}
	return latest, nil
}

// RecordsForCard returns a card's full decision history, oldest first.
func RecordsForCard(db *sql.DB, cardID int64) ([]*card.AcceptanceRecord, error) {
	rows, err := db.Query(`
		SELECT `+recordColumns+` FROM acceptance_records
		WHERE card_id = ?
		ORDER BY created_at, id`, cardID)
	if err != nil {
		return nil, errors.NewStorageIO("card records", err)
	}
	defer rows.Close()

	var recs []*card.AcceptanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.NewStorageIO("card records", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageIO("card records", err)
	}
	return recs, nil
}

// ArchiveRecords relocates a card's acceptance records into the archive by
// stamping archived_at. The decision fields are untouched; relocation is
// not a rewrite. Returns the number of records relocated.
func ArchiveRecords(db *sql.DB, cardID int64, now int64) (int, error) {
	result, err := db.Exec(`
		UPDATE acceptance_records SET archived_at = ?
		WHERE card_id = ? AND archived_at IS NULL`,
		now, cardID,
	)
	if err != nil {
		return 0, errors.NewStorageIO("archive records", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewStorageIO("archive records", err)
	}
	return int(n), nil
}

func scanRecord(row scanner) (*card.AcceptanceRecord, error) {
	var (
		rec        card.AcceptanceRecord
		decision   string
		notes      sql.NullString
		archivedAt sql.NullInt64
	)
	err := row.Scan(&rec.ID, &rec.CardID, &decision, &notes, &rec.Reviewer,
		&rec.CreatedAt, &archivedAt)
	if err != nil {
		return nil, err
	}
	rec.Decision = card.Decision(decision)
	if notes.Valid {
		rec.Notes = notes.String
	}
	rec.ArchivedAt = fromNullInt64(archivedAt)
	return &rec, nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
