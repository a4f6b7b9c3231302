package db

import (
	"database/sql"

	"glyphline/internal/errors"
)

const activeProjectKey = "active_project"

// ProjectInfo is the per-project activation metadata.
type ProjectInfo struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	FirstActivated  *int64 `json:"first_activated,omitempty"`
	LastActivated   *int64 `json:"last_activated,omitempty"`
	ActivationCount int    `json:"activation_count"`
	CreatedAt       int64  `json:"created_at"`
}

// ActiveProject returns the currently active project name, or empty string
// in conversation mode.
func ActiveProject(db *sql.DB) (string, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM app_state WHERE key = ?`, activeProjectKey).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.NewStorageIO("read active project", err)
	}
	return value, nil
}

// SetActiveProject records the active project; empty name clears it
// (conversation mode). Only explicit activate/deactivate calls mutate this;
// card operations never do.
func SetActiveProject(db *sql.DB, name string) error {
	var err error
	if name == "" {
		_, err = db.Exec(`DELETE FROM app_state WHERE key = ?`, activeProjectKey)
	} else {
		_, err = db.Exec(`
			INSERT INTO app_state (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			activeProjectKey, name)
	}
	if err != nil {
		return errors.NewStorageIO("set active project", err)
	}
	return nil
}

// RegisterProject creates the project row when it does not exist yet.
// Returns false if the project was already registered.
func RegisterProject(db *sql.DB, name, description string, now int64) (bool, error) {
	result, err := db.Exec(`
		INSERT INTO projects (name, description, activation_count, created_at)
		VALUES (?, ?, 0, ?)
		ON CONFLICT(name) DO NOTHING`,
		name, nullIfEmpty(description), now,
	)
	if err != nil {
		return false, errors.NewStorageIO("register project", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewStorageIO("register project", err)
	}
	return n == 1, nil
}

// TouchActivation updates activation metadata for a project, creating the
// row on first activation. One atomic upsert so concurrent activations
// cannot lose a count.
func TouchActivation(db *sql.DB, name string, now int64) error {
	_, err := db.Exec(`
		INSERT INTO projects (name, first_activated, last_activated, activation_count, created_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(name) DO UPDATE SET
			first_activated = COALESCE(projects.first_activated, excluded.first_activated),
			last_activated = excluded.last_activated,
			activation_count = projects.activation_count + 1`,
		name, now, now, now,
	)
	if err != nil {
		return errors.NewStorageIO("touch activation", err)
	}
	return nil
}

// GetProject returns a registered project, or NotFound.
func GetProject(db *sql.DB, name string) (*ProjectInfo, error) {
	row := db.QueryRow(`
		SELECT name, description, first_activated, last_activated, activation_count, created_at
		FROM projects WHERE name = ?`, name)
	info, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("project", name)
	}
	if err != nil {
		return nil, errors.NewStorageIO("get project", err)
	}
	return info, nil
}

// ListRegisteredProjects returns all registered projects ordered by name.
func ListRegisteredProjects(db *sql.DB) ([]*ProjectInfo, error) {
	rows, err := db.Query(`
		SELECT name, description, first_activated, last_activated, activation_count, created_at
		FROM projects ORDER BY name`)
	if err != nil {
		return nil, errors.NewStorageIO("list projects", err)
	}
	defer rows.Close()

	var infos []*ProjectInfo
	for rows.Next() {
		info, err := scanProject(rows)
		if err != nil {
			return nil, errors.NewStorageIO("list projects", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageIO("list projects", err)
	}
	return infos, nil
}

// DiscoverProjects returns the union of registered project names and
// project names appearing on any non-archived card, sorted.
func DiscoverProjects(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`
		SELECT name FROM projects
		UNION
		SELECT DISTINCT project FROM cards WHERE archived_at IS NULL
		ORDER BY 1`)
	if err != nil {
		return nil, errors.NewStorageIO("discover projects", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.NewStorageIO("discover projects", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageIO("discover projects", err)
	}
	return names, nil
}

// CountCardsInProject counts non-archived cards in a project.
func CountCardsInProject(db *sql.DB, name string) (int, error) {
	var n int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM cards WHERE project = ? AND archived_at IS NULL`,
		name).Scan(&n)
	if err != nil {
		return 0, errors.NewStorageIO("count cards", err)
	}
	return n, nil
}

func scanProject(row scanner) (*ProjectInfo, error) {
	var (
		info           ProjectInfo
		description    sql.NullString
		firstActivated sql.NullInt64
		lastActivated  sql.NullInt64
	)
	err := row.Scan(&info.Name, &description, &firstActivated, &lastActivated,
		&info.ActivationCount, &info.CreatedAt)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		info.Description = description.String
	}
	info.FirstActivated = fromNullInt64(firstActivated)
	info.LastActivated = fromNullInt64(lastActivated)
	return &info, nil
}
