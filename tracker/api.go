package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/animus-labs/actiontracker/internal/domain"
	"github.com/animus-labs/actiontracker/internal/platform/auditlog"
	"github.com/animus-labs/actiontracker/internal/platform/httpserver"
	"github.com/animus-labs/actiontracker/internal/repo"
	"github.com/animus-labs/actiontracker/internal/repo/sqlstore"
)

const maxBodyBytes = 1 << 20

type auditRecorder interface {
	Record(ctx context.Context, event auditlog.Event)
}

type trackerAPI struct {
	logger *slog.Logger
	store  repo.Store
	audit  auditRecorder
}

func newTrackerAPI(logger *slog.Logger, store repo.Store, audit auditRecorder) *trackerAPI {
	return &trackerAPI{
		logger: logger,
		store:  store,
		audit:  audit,
	}
}

func (api *trackerAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", api.handleRoot)

	mux.HandleFunc("GET /api/projects", api.handleListProjects)
	mux.HandleFunc("POST /api/projects", api.handleCreateProject)
	mux.HandleFunc("GET /api/projects/{id}", api.handleGetProject)
	mux.HandleFunc("DELETE /api/projects/{id}", api.handleDeleteProject)

	mux.HandleFunc("GET /api/actions", api.handleListActions)
	mux.HandleFunc("POST /api/actions", api.handleCreateAction)
	mux.HandleFunc("DELETE /api/actions/{id}", api.handleDeleteAction)
}

func (api *trackerAPI) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "Sanity Check!")
}

func (api *trackerAPI) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := api.store.Projects().List(r.Context())
	if err != nil {
		api.writeFault(w, r, "list projects", "Unable to retrieve the projects.", err)
		return
	}
	api.writeJSON(w, http.StatusOK, projects)
}

func (api *trackerAPI) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		api.writeMessage(w, r, http.StatusNotFound, "Unable to find that project")
		return
	}

	project, err := api.store.Projects().Get(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		api.writeMessage(w, r, http.StatusNotFound, "Unable to find that project")
		return
	}
	if err != nil {
		api.writeFault(w, r, "get project", "Unable to retrieve the project.", err)
		return
	}

	actions, err := api.store.Actions().ListByProject(r.Context(), id)
	if err != nil {
		api.writeFault(w, r, "list project actions", "Unable to retrieve the project.", err)
		return
	}
	api.writeJSON(w, http.StatusOK, domain.ProjectWithActions{Project: project, Actions: actions})
}

func (api *trackerAPI) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req domain.NewProject
	if err := decodeJSON(r, &req); err != nil {
		api.writeMessage(w, r, http.StatusBadRequest, "Invalid JSON body.")
		return
	}
	if err := req.Validate(); err != nil {
		api.writeMessage(w, r, http.StatusBadRequest, "Please include a name and description.")
		return
	}

	project, err := api.store.Projects().Create(r.Context(), req)
	if errors.Is(err, repo.ErrNotFound) {
		api.writeMessage(w, r, http.StatusNotFound, "Project could not be created.")
		return
	}
	if err != nil {
		api.writeFault(w, r, "create project", "Unable to add the project.", err)
		return
	}
	api.record(r, auditlog.ActionProjectCreate, auditlog.ResourceProject, project.ID, project)
	api.writeJSON(w, http.StatusOK, map[string]any{
		"message": "Project created successfully.",
		"project": project,
	})
}

func (api *trackerAPI) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		api.writeMessage(w, r, http.StatusNotFound, "Project could not be found.")
		return
	}

	err := api.store.DeleteProject(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		api.writeMessage(w, r, http.StatusNotFound, "Project could not be found.")
		return
	}
	if err != nil {
		api.writeFault(w, r, "delete project", "Error when deleting the project.", err)
		return
	}
	api.record(r, auditlog.ActionProjectDelete, auditlog.ResourceProject, id, nil)
	w.WriteHeader(http.StatusNoContent)
}

// handleListActions answers 404 for an empty table, unlike the project
// listing.
func (api *trackerAPI) handleListActions(w http.ResponseWriter, r *http.Request) {
	actions, err := api.store.Actions().List(r.Context())
	if err != nil {
		api.writeFault(w, r, "list actions", "Error retreiving the actions.", err)
		return
	}
	if len(actions) == 0 {
		api.writeMessage(w, r, http.StatusNotFound, "Unable to find any actions.")
		return
	}
	api.writeJSON(w, http.StatusOK, actions)
}

func (api *trackerAPI) handleCreateAction(w http.ResponseWriter, r *http.Request) {
	var req domain.NewAction
	if err := decodeJSON(r, &req); err != nil {
		api.writeMessage(w, r, http.StatusBadRequest, "Invalid JSON body.")
		return
	}
	if err := req.Validate(); err != nil {
		api.writeMessage(w, r, http.StatusBadRequest, "Please include a name, description, notes, and project ID.")
		return
	}

	action, err := api.store.Actions().Create(r.Context(), req)
	if errors.Is(err, repo.ErrNotFound) {
		api.writeMessage(w, r, http.StatusNotFound, "Unable to add the action.")
		return
	}
	if err != nil {
		api.writeFault(w, r, "create action", "Error adding the action.", err)
		return
	}
	api.record(r, auditlog.ActionActionCreate, auditlog.ResourceAction, action.ID, action)
	api.writeJSON(w, http.StatusOK, map[string]any{
		"message": "Action was created.",
		"action":  action,
	})
}

func (api *trackerAPI) handleDeleteAction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		api.writeMessage(w, r, http.StatusNotFound, "Unable to find that action.")
		return
	}

	n, err := api.store.Actions().Delete(r.Context(), id)
	if err != nil {
		api.writeFault(w, r, "delete action", "Error deleting the action.", err)
		return
	}
	if n == 0 {
		api.writeMessage(w, r, http.StatusNotFound, "Unable to find that action.")
		return
	}
	api.record(r, auditlog.ActionActionDelete, auditlog.ResourceAction, id, nil)
	api.writeJSON(w, http.StatusOK, map[string]any{"message": "Successfully deleted"})
}

func (api *trackerAPI) record(r *http.Request, action, resourceType string, id int64, payload any) {
	if api.audit == nil {
		return
	}
	api.audit.Record(r.Context(), auditlog.FromRequest(r, action, resourceType, strconv.FormatInt(id, 10), payload))
}

// pathID parses the {id} segment. A non-numeric id cannot match any row,
// so callers answer it as not found.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("multiple JSON values")
	}
	return nil
}

func (api *trackerAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func (api *trackerAPI) writeMessage(w http.ResponseWriter, r *http.Request, status int, message string) {
	api.writeJSON(w, status, map[string]any{
		"message":    message,
		"request_id": r.Header.Get(httpserver.RequestIDHeader),
	})
}

// writeFault reports a store failure as 500 and echoes the raw error text.
func (api *trackerAPI) writeFault(w http.ResponseWriter, r *http.Request, op string, message string, err error) {
	requestID := r.Header.Get(httpserver.RequestIDHeader)
	api.logger.Error("store fault",
		"request_id", requestID,
		"op", op,
		"fault", sqlstore.FaultKind(err),
		"error", err,
	)
	api.writeJSON(w, http.StatusInternalServerError, map[string]any{
		"message":    message,
		"error":      err.Error(),
		"request_id": requestID,
	})
}
