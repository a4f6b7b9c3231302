package ops

import (
	"database/sql"
	"fmt"
	"time"

	"glyphline/internal/card"
	"glyphline/internal/db"
)

// ProjectInput names a project for the project operations.
type ProjectInput struct {
	Name        string
	Description string
}

// ProjectOutput contains the result of a project state change.
type ProjectOutput struct {
	Name    string `json:"name,omitempty"`
	Created bool   `json:"created,omitempty"`
	Message string `json:"message"`
}

// ProjectView is one project in a listing.
type ProjectView struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Active          bool   `json:"active"`
	Registered      bool   `json:"registered"`
	CardCount       int    `json:"card_count"`
	ActivationCount int64  `json:"activation_count,omitempty"`
	FirstActivated  int64  `json:"first_activated,omitempty"`
	LastActivated   int64  `json:"last_activated,omitempty"`
}

// ListProjectsOutput contains the result of the ListProjects operation.
type ListProjectsOutput struct {
	Projects []ProjectView `json:"projects"`
	Active   string        `json:"active_project,omitempty"`
	Message  string        `json:"message"`
}

// ProjectContextOutput describes the current namespace and its workload.
type ProjectContextOutput struct {
	Active      string         `json:"active_project,omitempty"`
	Description string         `json:"description,omitempty"`
	CardCount   int            `json:"card_count"`
	ByStatus    map[string]int `json:"by_status,omitempty"`
	Message     string         `json:"message"`
}

// CreateProject registers a project name so it can be activated later.
// Names are lowercase with underscores; anything else is rejected with a
// suggested correction.
func CreateProject(database *sql.DB, input ProjectInput) (*ProjectOutput, error) {
	if err := card.ValidateProjectName(input.Name); err != nil {
		return nil, err
	}
	created, err := db.RegisterProject(database, input.Name, input.Description, time.Now().Unix())
	if err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("project %q created", input.Name)
	if !created {
		msg = fmt.Sprintf("project %q already exists", input.Name)
	}
	return &ProjectOutput{Name: input.Name, Created: created, Message: msg}, nil
}

// ActivateProject switches the namespace: until deactivated, new cards land
// in this project and listings only show its cards. Activating an
// unregistered name registers it first.
func ActivateProject(database *sql.DB, input ProjectInput) (*ProjectOutput, error) {
	if err := card.ValidateProjectName(input.Name); err != nil {
		return nil, err
	}
	now := time.Now().Unix()
	created, err := db.RegisterProject(database, input.Name, input.Description, now)
	if err != nil {
		return nil, err
	}
	if err := db.TouchActivation(database, input.Name, now); err != nil {
		return nil, err
	}
	if err := db.SetActiveProject(database, input.Name); err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("project %q is now active; new cards will be created in it", input.Name)
	return &ProjectOutput{Name: input.Name, Created: created, Message: msg}, nil
}

// DeactivateProject returns to conversation mode: no namespace, all
// projects visible, and new cards must name their project explicitly.
func DeactivateProject(database *sql.DB) (*ProjectOutput, error) {
	active, err := db.ActiveProject(database)
	if err != nil {
		return nil, err
	}
	if active == "" {
		return &ProjectOutput{Message: "no project is active"}, nil
	}
	if err := db.SetActiveProject(database, ""); err != nil {
		return nil, err
	}
	return &ProjectOutput{
		Name:    active,
		Message: fmt.Sprintf("project %q deactivated; all projects are visible again", active),
	}, nil
}

// ListProjects shows every known project: registered ones plus any that
// exist only as a project field on cards.
func ListProjects(database *sql.DB) (*ListProjectsOutput, error) {
	active, err := db.ActiveProject(database)
	if err != nil {
		return nil, err
	}
	registered, err := db.ListRegisteredProjects(database)
	if err != nil {
		return nil, err
	}
	names, err := db.DiscoverProjects(database)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*db.ProjectInfo, len(registered))
	for _, p := range registered {
		byName[p.Name] = p
	}

	out := &ListProjectsOutput{Active: active}
	for _, name := range names {
		count, err := db.CountCardsInProject(database, name)
		if err != nil {
			return nil, err
		}
		view := ProjectView{
			Name:      name,
			Active:    name == active,
			CardCount: count,
		}
		if p := byName[name]; p != nil {
			view.Registered = true
			view.Description = p.Description
			view.ActivationCount = int64(p.ActivationCount)
			if p.FirstActivated != nil {
				view.FirstActivated = *p.FirstActivated
			}
			if p.LastActivated != nil {
				view.LastActivated = *p.LastActivated
			}
		}
		out.Projects = append(out.Projects, view)
	}

	if len(out.Projects) == 0 {
		out.Message = "no projects yet"
	} else {
		out.Message = fmt.Sprintf("%d project(s)", len(out.Projects))
	}
	return out, nil
}

// ProjectContext reports the active namespace and a status breakdown of
// its cards, so an agent can orient itself before claiming work.
func ProjectContext(database *sql.DB) (*ProjectContextOutput, error) {
	active, err := db.ActiveProject(database)
	if err != nil {
		return nil, err
	}
	if active == "" {
		return &ProjectContextOutput{
			Message: "conversation mode: no active project, all projects visible",
		}, nil
	}

	cards, err := db.ListCards(database, db.CardFilter{Project: active})
	if err != nil {
		return nil, err
	}
	byStatus := make(map[string]int)
	for _, c := range cards {
		byStatus[string(c.Status)]++
	}

	out := &ProjectContextOutput{
		Active:    active,
		CardCount: len(cards),
		ByStatus:  byStatus,
		Message:   fmt.Sprintf("project %q is active with %d open card(s)", active, len(cards)),
	}
	if p, err := db.GetProject(database, active); err == nil && p != nil {
		out.Description = p.Description
	}
	return out, nil
}
