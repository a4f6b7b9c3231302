package web

import (
	"database/sql"
	"net/http"
	"os"

	"glyphline/internal/card"
	"glyphline/internal/config"
	"glyphline/internal/errors"
	"glyphline/internal/ops"
)

// Handlers contains HTTP route handlers for the review dashboard.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	renderer *Renderer
}

// HandleBoard handles GET /board - all cards grouped by state.
func (h *Handlers) HandleBoard(w http.ResponseWriter, r *http.Request) {
	project := r.URL.Query().Get("project")

	result, err := ops.List(h.db, h.cfg, ops.ListInput{
		Project:   project,
		AllAgents: true,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "board", BoardPageData{
		PageData: PageData{
			Title:   "Board",
			Version: h.renderer.version,
			Nav:     "board",
		},
		Workable: result.Workable,
		InFlight: result.InFlight,
		Blocked:  result.Blocked,
		Done:     result.Done,
		Project:  result.Project,
	})
}

// HandleQueue handles GET /queue - cards awaiting human acceptance.
func (h *Handlers) HandleQueue(w http.ResponseWriter, r *http.Request) {
	project := r.URL.Query().Get("project")

	result, err := ops.Queue(h.db, h.cfg, ops.QueueInput{Project: project})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "queue", QueuePageData{
		PageData: PageData{
			Title:   "Review Queue",
			Version: h.renderer.version,
			Nav:     "queue",
		},
		Entries: result.Entries,
		Project: project,
		Notice:  r.URL.Query().Get("notice"),
	})
}

// HandleDetail handles GET /cards/{id} - one card with its chain, review
// history, and rendered submission document.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := card.ParseID(r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := ops.Status(h.db, ops.StatusInput{CardID: id, IncludeArchived: true})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	data := DetailPageData{
		PageData: PageData{
			Title:   "Card " + result.DisplayID,
			Version: h.renderer.version,
			Nav:     "queue",
		},
		Card:   result,
		Chain:  result.Chain,
		DocRef: ops.DocPathFor(h.cfg, result.AssignedTo, result.ID),
	}
	if doc, readErr := os.ReadFile(data.DocRef); readErr == nil {
		data.DocExists = true
		data.RenderedDoc = renderMarkdown(string(doc))
	}

	h.renderer.renderPage(w, r, "detail", data)
}

// HandleAccept handles POST /cards/{id}/accept - human acceptance.
func (h *Handlers) HandleAccept(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, card.DecisionAccepted)
}

// HandleRevise handles POST /cards/{id}/revise - human revision request.
func (h *Handlers) HandleRevise(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, card.DecisionNeedsRevision)
}

func (h *Handlers) decide(w http.ResponseWriter, r *http.Request, decision card.Decision) {
	id, err := card.ParseID(r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("malformed form"))
		return
	}

	result, err := ops.Decide(h.db, h.cfg, ops.DecideInput{
		CardID:   id,
		Decision: decision,
		Notes:    r.PostFormValue("notes"),
		Reviewer: r.PostFormValue("reviewer"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	http.Redirect(w, r, "/queue?notice="+result.DisplayID, http.StatusSeeOther)
}

// HandleArchivePost handles POST /cards/{id}/archive.
func (h *Handlers) HandleArchivePost(w http.ResponseWriter, r *http.Request) {
	id, err := card.ParseID(r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if _, err := ops.Archive(h.db, ops.ArchiveInput{CardID: id}); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	http.Redirect(w, r, "/archive", http.StatusSeeOther)
}

// HandleProjects handles GET /projects.
func (h *Handlers) HandleProjects(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListProjects(h.db)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "projects", ProjectsPageData{
		PageData: PageData{
			Title:   "Projects",
			Version: h.renderer.version,
			Nav:     "projects",
		},
		Projects: result.Projects,
		Active:   result.Active,
	})
}

// HandleArchive handles GET /archive - retired cards.
func (h *Handlers) HandleArchive(w http.ResponseWriter, r *http.Request) {
	project := r.URL.Query().Get("project")

	result, err := ops.ListArchived(h.db, ops.ListArchivedInput{Project: project})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "archive", ArchivePageData{
		PageData: PageData{
			Title:   "Archive",
			Version: h.renderer.version,
			Nav:     "archive",
		},
		Cards:   result.Cards,
		Project: project,
	})
}
