package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"glyphline/internal/card"
	"glyphline/internal/errors"
)

const cardColumns = `id, title, project, assigned_to, status, size,
	deliverables_json, validation_json, context_needs_json, open_questions_json,
	linked_to, created_at, updated_at, reviewed_at, archived_at`

// InsertCard stores a new card. When c.ID is zero, SQLite assigns the next
// rowid and the struct is updated with it; a non-zero ID (import path) is
// inserted as given and fails on collision.
func InsertCard(db *sql.DB, c *card.Card) error {
	deliverables, err := marshalList(c.Deliverables)
	if err != nil {
		return err
	}
	validation, err := marshalList(c.Validation)
	if err != nil {
		return err
	}
	contextNeeds, err := marshalList(c.ContextNeeds)
	if err != nil {
		return err
	}
	openQuestions, err := marshalList(c.OpenQuestions)
	if err != nil {
		return err
	}

	var id any
	if c.ID > 0 {
		id = c.ID
	}

	query := `
		INSERT INTO cards (
			id, title, project, assigned_to, status, size,
			deliverables_json, validation_json, context_needs_json, open_questions_json,
			linked_to, created_at, updated_at, reviewed_at, archived_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := db.Exec(query,
		id, c.Title, c.Project, c.AssignedTo, string(c.Status), c.Size,
		deliverables, validation, contextNeeds, openQuestions,
		toNullInt64(c.LinkedTo), c.CreatedAt, c.UpdatedAt,
		toNullInt64(c.ReviewedAt), toNullInt64(c.ArchivedAt),
	)
	if err != nil {
		return errors.NewStorageIO("insert card", err)
	}

	if c.ID == 0 {
		assigned, err := result.LastInsertId()
		if err != nil {
			return errors.NewStorageIO("insert card", err)
		}
		c.ID = assigned
	}

	return nil
}

// GetCard retrieves a card by id. Archived cards are excluded unless
// includeArchived is set.
func GetCard(db *sql.DB, id int64, includeArchived bool) (*card.Card, error) {
	query := "SELECT " + cardColumns + " FROM cards WHERE id = ?"
	if !includeArchived {
		query += " AND archived_at IS NULL"
	}

	c, err := scanCard(db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("card", card.FormatID(id))
	}
	if err != nil {
		return nil, errors.NewStorageIO("get card", err)
	}
	return c, nil
}

// CardFilter narrows ListCards results. Zero values mean "no filter".
type CardFilter struct {
	Project         string
	AssignedTo      string
	Status          card.Status
	LinkedTo        int64
	IncludeArchived bool
	ArchivedOnly    bool
}

// ListCards returns cards matching the filter, ordered by id.
func ListCards(db *sql.DB, f CardFilter) ([]*card.Card, error) {
	query := "SELECT " + cardColumns + " FROM cards WHERE 1=1"
	args := []any{}

	if f.ArchivedOnly {
		query += " AND archived_at IS NOT NULL"
	} else if !f.IncludeArchived {
		query += " AND archived_at IS NULL"
	}
	if f.Project != "" {
		query += " AND project = ?"
		args = append(args, f.Project)
	}
	if f.AssignedTo != "" {
		query += " AND assigned_to = ?"
		args = append(args, f.AssignedTo)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	if f.LinkedTo != 0 {
		query += " AND linked_to = ?"
		args = append(args, f.LinkedTo)
	}
	query += " ORDER BY id"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.NewStorageIO("list cards", err)
	}
	defer rows.Close()

	var cards []*card.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, errors.NewStorageIO("list cards", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageIO("list cards", err)
	}
	return cards, nil
}

// CASStatus transitions a card's status only if it still holds the expected
// one at write time. Returns false when the precondition no longer holds
// (the caller re-reads to classify the loss). This single conditional
// UPDATE is the at-most-one-claim mechanism.
func CASStatus(db *sql.DB, id int64, from, to card.Status) (bool, error) {
	result, err := db.Exec(`
		UPDATE cards SET status = ?, updated_at = ?
		WHERE id = ? AND status = ? AND archived_at IS NULL`,
		string(to), time.Now().Unix(), id, string(from),
	)
	if err != nil {
		return false, errors.NewStorageIO("update status", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewStorageIO("update status", err)
	}
	return n == 1, nil
}

// casStatusReviewedTx is CASStatus inside a transaction, also stamping
// reviewed_at. Used by review decisions so the status write and the ledger
// append commit together.
func casStatusReviewedTx(tx *sql.Tx, id int64, from, to card.Status, now int64) (bool, error) {
	result, err := tx.Exec(`
		UPDATE cards SET status = ?, updated_at = ?, reviewed_at = ?
		WHERE id = ? AND status = ? AND archived_at IS NULL`,
		string(to), now, now, id, string(from),
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UpdateCardFields rewrites the editable fields of a card (title, size,
// lists, linked_to). Identity, project, assignee and status are not touched
// here; status changes go through CASStatus only.
func UpdateCardFields(db *sql.DB, c *card.Card) error {
	deliverables, err := marshalList(c.Deliverables)
	if err != nil {
		return err
	}
	validation, err := marshalList(c.Validation)
	if err != nil {
		return err
	}
	contextNeeds, err := marshalList(c.ContextNeeds)
	if err != nil {
		return err
	}
	openQuestions, err := marshalList(c.OpenQuestions)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	result, err := db.Exec(`
		UPDATE cards SET title = ?, size = ?, deliverables_json = ?,
			validation_json = ?, context_needs_json = ?, open_questions_json = ?,
			linked_to = ?, updated_at = ?
		WHERE id = ? AND archived_at IS NULL`,
		c.Title, c.Size, deliverables, validation, contextNeeds, openQuestions,
		toNullInt64(c.LinkedTo), now, c.ID,
	)
	if err != nil {
		return errors.NewStorageIO("update card", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.NewStorageIO("update card", err)
	}
	if n == 0 {
		return errors.NewNotFound("card", card.FormatID(c.ID))
	}
	c.UpdatedAt = now
	return nil
}

// ArchiveCard relocates an accepted card out of the active set. The status
// precondition is enforced in the same statement so a concurrent decision
// cannot slip between check and write.
func ArchiveCard(db *sql.DB, id int64, now int64) (bool, error) {
	result, err := db.Exec(`
		UPDATE cards SET archived_at = ?, updated_at = ?
		WHERE id = ? AND status = ? AND archived_at IS NULL`,
		now, now, id, string(card.StatusAccepted),
	)
	if err != nil {
		return false, errors.NewStorageIO("archive card", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewStorageIO("archive card", err)
	}
	return n == 1, nil
}

// ActiveDependents returns non-archived cards whose linked_to points at id.
func ActiveDependents(db *sql.DB, id int64) ([]*card.Card, error) {
	return ListCards(db, CardFilter{LinkedTo: id})
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCard(row scanner) (*card.Card, error) {
	var (
		c             card.Card
		status        string
		deliverables  sql.NullString
		validation    sql.NullString
		contextNeeds  sql.NullString
		openQuestions sql.NullString
		linkedTo      sql.NullInt64
		reviewedAt    sql.NullInt64
		archivedAt    sql.NullInt64
	)

	err := row.Scan(
		&c.ID, &c.Title, &c.Project, &c.AssignedTo, &status, &c.Size,
		&deliverables, &validation, &contextNeeds, &openQuestions,
		&linkedTo, &c.CreatedAt, &c.UpdatedAt, &reviewedAt, &archivedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Status = card.Status(status)
	if c.Deliverables, err = unmarshalList(deliverables); err != nil {
		return nil, err
	}
	if c.Validation, err = unmarshalList(validation); err != nil {
		return nil, err
	}
	if c.ContextNeeds, err = unmarshalList(contextNeeds); err != nil {
		return nil, err
	}
	if c.OpenQuestions, err = unmarshalList(openQuestions); err != nil {
		return nil, err
	}
	c.LinkedTo = fromNullInt64(linkedTo)
	c.ReviewedAt = fromNullInt64(reviewedAt)
	c.ArchivedAt = fromNullInt64(archivedAt)

	return &c, nil
}

func marshalList(items []string) (sql.NullString, error) {
	if len(items) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return sql.NullString{}, errors.NewInternal(err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalList(s sql.NullString) ([]string, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var items []string
	if err := json.Unmarshal([]byte(s.String), &items); err != nil {
		return nil, errors.NewInternal(err)
	}
	return items, nil
}

func toNullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func fromNullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
