package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"outline-backend/application/commands"
	commandbus "outline-backend/application/commands/bus"
	"outline-backend/application/queries"
	querybus "outline-backend/application/queries/bus"
	"outline-backend/application/services"
	"outline-backend/application/transfer"
	"outline-backend/pkg/auth"
	"outline-backend/pkg/common"
	apperrors "outline-backend/pkg/errors"
)

// OutlineHandler serves the whole-outline operations: the rendered tree,
// undo, expansion levels, drag sessions, save, load and document exchange.
type OutlineHandler struct {
	commandBus *commandbus.CommandBus
	queryBus   *querybus.QueryBus
	registry   *services.WorkspaceRegistry
	logger     *zap.Logger
}

// NewOutlineHandler creates the handler
func NewOutlineHandler(
	commandBus *commandbus.CommandBus,
	queryBus *querybus.QueryBus,
	registry *services.WorkspaceRegistry,
	logger *zap.Logger,
) *OutlineHandler {
	return &OutlineHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		registry:   registry,
		logger:     logger,
	}
}

// GetOutline handles GET /projects/{projectID}/outline
func (h *OutlineHandler) GetOutline(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	result, err := h.queryBus.Ask(r.Context(), &queries.GetOutlineQuery{
		ProjectID: chi.URLParam(r, "projectID"),
		UserID:    user.UserID,
	})
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// Undo handles POST /projects/{projectID}/undo
func (h *OutlineHandler) Undo(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	cmd := &commands.UndoMoveCommand{
		ProjectID: chi.URLParam(r, "projectID"),
		UserID:    user.UserID,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{
		"undone_note_id": cmd.UndoneNoteID,
		"description":    cmd.Description,
	})
}

// UndoStatus handles GET /projects/{projectID}/undo
func (h *OutlineHandler) UndoStatus(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	result, err := h.queryBus.Ask(r.Context(), &queries.GetUndoStatusQuery{
		ProjectID: chi.URLParam(r, "projectID"),
		UserID:    user.UserID,
	})
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

type expansionRequest struct {
	Action string `json:"action"`
	Level  int    `json:"level"`
}

// SetExpansion handles POST /projects/{projectID}/expansion. Actions:
// expand_all, collapse_all, expand_one, collapse_one, set_level.
func (h *OutlineHandler) SetExpansion(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	var req expansionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError("invalid request body"))
		return
	}

	ws := h.registry.GetOrCreate(chi.URLParam(r, "projectID"), user.UserID)
	switch req.Action {
	case "expand_all":
		ws.ExpandAll()
	case "collapse_all":
		ws.CollapseAll()
	case "expand_one":
		ws.ExpandOneMore()
	case "collapse_one":
		ws.CollapseOne()
	case "set_level":
		ws.ExpandToLevel(req.Level)
	default:
		common.RespondAppError(w, apperrors.NewValidationError("unknown expansion action"))
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]int{
		"current_level": ws.Expansion().CurrentLevel(),
		"max_depth":     ws.Expansion().MaxDepth(),
	})
}

// BeginDrag handles POST /projects/{projectID}/drag-session. The returned
// token must accompany the move that ends the drag.
func (h *OutlineHandler) BeginDrag(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	ws := h.registry.GetOrCreate(chi.URLParam(r, "projectID"), user.UserID)
	common.RespondJSON(w, http.StatusCreated, map[string]string{"gesture_token": ws.BeginDrag()})
}

type endDragRequest struct {
	GestureToken string `json:"gesture_token"`
}

// EndDrag handles DELETE /projects/{projectID}/drag-session, cancelling a
// drag without a drop.
func (h *OutlineHandler) EndDrag(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	var req endDragRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.RespondAppError(w, apperrors.NewValidationError("invalid request body"))
			return
		}
	}

	ws := h.registry.GetOrCreate(chi.URLParam(r, "projectID"), user.UserID)
	ws.EndDrag(req.GestureToken)
	common.RespondJSON(w, http.StatusOK, map[string]bool{"ended": true})
}

// Save handles POST /projects/{projectID}/save, bypassing the autosave
// debounce.
func (h *OutlineHandler) Save(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	cmd := &commands.SaveProjectCommand{
		ProjectID: chi.URLParam(r, "projectID"),
		UserID:    user.UserID,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]uint64{"sequence": cmd.Sequence})
}

// Load handles POST /projects/{projectID}/load, replacing the working copy
// with the stored project.
func (h *OutlineHandler) Load(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	cmd := &commands.LoadProjectCommand{
		ProjectID: chi.URLParam(r, "projectID"),
		UserID:    user.UserID,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]bool{"loaded": true})
}

// Export handles GET /projects/{projectID}/export
func (h *OutlineHandler) Export(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	result, err := h.queryBus.Ask(r.Context(), &queries.ExportDocumentQuery{
		ProjectID: chi.URLParam(r, "projectID"),
		UserID:    user.UserID,
	})
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// Import handles POST /projects/{projectID}/import. The body is a document
// in the export format; notes get fresh IDs and image references are
// dropped.
func (h *OutlineHandler) Import(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	var doc transfer.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError("invalid document body"))
		return
	}

	cmd := &commands.ImportDocumentCommand{
		ProjectID: chi.URLParam(r, "projectID"),
		UserID:    user.UserID,
		Document:  &doc,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]bool{"imported": true})
}

// DeleteProject handles DELETE /projects/{projectID}. The workspace is
// discarded along with the stored record, unsaved changes included.
func (h *OutlineHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	cmd := &commands.DeleteProjectCommand{
		ProjectID: chi.URLParam(r, "projectID"),
		UserID:    user.UserID,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// ListProjects handles GET /projects
func (h *OutlineHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	result, err := h.queryBus.Ask(r.Context(), &queries.ListProjectsQuery{UserID: user.UserID})
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}
