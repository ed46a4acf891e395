package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"outline-backend/application/commands"
	commandbus "outline-backend/application/commands/bus"
	"outline-backend/application/services"
	"outline-backend/pkg/auth"
	"outline-backend/pkg/common"
	apperrors "outline-backend/pkg/errors"
)

// NoteHandler serves the per-note operations: create, update, delete,
// move, select and expansion toggle. Tree changes go through the command
// bus; selection and expansion are session state and hit the workspace
// directly.
type NoteHandler struct {
	commandBus *commandbus.CommandBus
	registry   *services.WorkspaceRegistry
	logger     *zap.Logger
}

// NewNoteHandler creates the handler
func NewNoteHandler(commandBus *commandbus.CommandBus, registry *services.WorkspaceRegistry, logger *zap.Logger) *NoteHandler {
	return &NoteHandler{commandBus: commandBus, registry: registry, logger: logger}
}

type addNoteRequest struct {
	ParentID *string `json:"parent_id"`
	Position *int    `json:"position"`
}

// AddNote handles POST /projects/{projectID}/notes
func (h *NoteHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	var req addNoteRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.RespondAppError(w, apperrors.NewValidationError("invalid request body"))
			return
		}
	}

	cmd := &commands.AddNoteCommand{
		ProjectID: chi.URLParam(r, "projectID"),
		UserID:    user.UserID,
		ParentID:  req.ParentID,
		Position:  req.Position,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, map[string]string{"id": cmd.CreatedID})
}

type updateNoteRequest struct {
	Content        *string         `json:"content"`
	IsDiscussion   *bool           `json:"is_discussion"`
	TimeSet        *string         `json:"time_set"`
	ClearTimeSet   bool            `json:"clear_time_set"`
	YoutubeURL     *string         `json:"youtube_url"`
	URL            *string         `json:"url"`
	URLDisplayText *string         `json:"url_display_text"`
	Images         *[]imagePayload `json:"images"`
}

type imagePayload struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// UpdateNote handles PATCH /projects/{projectID}/notes/{noteID}
func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	var req updateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError("invalid request body"))
		return
	}

	cmd := &commands.UpdateNoteCommand{
		ProjectID:      chi.URLParam(r, "projectID"),
		UserID:         user.UserID,
		NoteID:         chi.URLParam(r, "noteID"),
		Content:        req.Content,
		IsDiscussion:   req.IsDiscussion,
		ClearTimeSet:   req.ClearTimeSet,
		YoutubeURL:     req.YoutubeURL,
		URL:            req.URL,
		URLDisplayText: req.URLDisplayText,
	}
	if req.TimeSet != nil {
		ts, err := time.Parse(time.RFC3339, *req.TimeSet)
		if err != nil {
			common.RespondAppError(w, apperrors.NewValidationError("time_set must be RFC3339"))
			return
		}
		cmd.TimeSet = &ts
	}
	if req.Images != nil {
		images := make([]commands.ImagePayload, 0, len(*req.Images))
		for _, img := range *req.Images {
			images = append(images, commands.ImagePayload{Key: img.Key, URL: img.URL})
		}
		cmd.Images = &images
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"id": cmd.NoteID})
}

// DeleteNote handles DELETE /projects/{projectID}/notes/{noteID}. The
// cascade query parameter removes the subtree; without it the children are
// promoted into the deleted note's slot.
func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	cascade, _ := strconv.ParseBool(r.URL.Query().Get("cascade"))
	cmd := &commands.DeleteNoteCommand{
		ProjectID: chi.URLParam(r, "projectID"),
		UserID:    user.UserID,
		NoteID:    chi.URLParam(r, "noteID"),
		Cascade:   cascade,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

type moveNoteRequest struct {
	TargetParentID *string `json:"target_parent_id"`
	Position       int     `json:"position"`
	GestureToken   string  `json:"gesture_token"`
}

// MoveNote handles POST /projects/{projectID}/notes/{noteID}/move
func (h *NoteHandler) MoveNote(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	var req moveNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError("invalid request body"))
		return
	}

	cmd := &commands.MoveNoteCommand{
		ProjectID:      chi.URLParam(r, "projectID"),
		UserID:         user.UserID,
		NoteID:         chi.URLParam(r, "noteID"),
		TargetParentID: req.TargetParentID,
		Position:       req.Position,
		GestureToken:   req.GestureToken,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"id": cmd.NoteID})
}

// SelectNote handles POST /projects/{projectID}/notes/{noteID}/select
func (h *NoteHandler) SelectNote(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	ws := h.registry.GetOrCreate(chi.URLParam(r, "projectID"), user.UserID)
	id, err := parseNoteID(chi.URLParam(r, "noteID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	if err := ws.Select(id); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"selected_id": id.String()})
}

// ToggleExpanded handles POST /projects/{projectID}/notes/{noteID}/toggle
func (h *NoteHandler) ToggleExpanded(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	ws := h.registry.GetOrCreate(chi.URLParam(r, "projectID"), user.UserID)
	id, err := parseNoteID(chi.URLParam(r, "noteID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	ws.ToggleExpanded(id)
	common.RespondJSON(w, http.StatusOK, map[string]bool{"expanded": ws.Expansion().IsExpanded(id)})
}
