package handlers

import (
	"context"

	"go.uber.org/zap"

	"outline-backend/application/commands"
	"outline-backend/application/commands/bus"
	"outline-backend/application/services"
	"outline-backend/domain/core/entities"
	"outline-backend/domain/core/valueobjects"
	pkgerrors "outline-backend/pkg/errors"
)

// parseOptionalID converts an optional string ID into an optional NoteID
func parseOptionalID(s *string) (*valueobjects.NoteID, error) {
	if s == nil {
		return nil, nil
	}
	id, err := valueobjects.NewNoteIDFromString(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// AddNoteHandler handles AddNoteCommand
type AddNoteHandler struct {
	registry *services.WorkspaceRegistry
	logger   *zap.Logger
}

// NewAddNoteHandler creates the handler
func NewAddNoteHandler(registry *services.WorkspaceRegistry, logger *zap.Logger) *AddNoteHandler {
	return &AddNoteHandler{registry: registry, logger: logger}
}

// Handle creates the note and records its ID on the command
func (h *AddNoteHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(*commands.AddNoteCommand)
	if !ok {
		return pkgerrors.NewInternalError("unexpected command type for AddNoteHandler")
	}

	parentID, err := parseOptionalID(c.ParentID)
	if err != nil {
		return pkgerrors.NewValidationError("parent ID must be a valid UUID")
	}

	w := h.registry.GetOrCreate(c.ProjectID, c.UserID)
	id, err := w.AddNote(ctx, parentID, c.Position)
	if err != nil {
		return err
	}

	c.CreatedID = id.String()
	h.logger.Debug("note added",
		zap.String("project_id", c.ProjectID),
		zap.String("note_id", c.CreatedID))
	return nil
}

// UpdateNoteHandler handles UpdateNoteCommand
type UpdateNoteHandler struct {
	registry *services.WorkspaceRegistry
	logger   *zap.Logger
}

// NewUpdateNoteHandler creates the handler
func NewUpdateNoteHandler(registry *services.WorkspaceRegistry, logger *zap.Logger) *UpdateNoteHandler {
	return &UpdateNoteHandler{registry: registry, logger: logger}
}

// Handle merges the command's field changes into the note
func (h *UpdateNoteHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(*commands.UpdateNoteCommand)
	if !ok {
		return pkgerrors.NewInternalError("unexpected command type for UpdateNoteHandler")
	}

	noteID, err := valueobjects.NewNoteIDFromString(c.NoteID)
	if err != nil {
		return pkgerrors.NewValidationError("note ID must be a valid UUID")
	}

	patch := entities.NotePatch{
		Content:        c.Content,
		IsDiscussion:   c.IsDiscussion,
		TimeSet:        c.TimeSet,
		ClearTimeSet:   c.ClearTimeSet,
		YoutubeURL:     c.YoutubeURL,
		URL:            c.URL,
		URLDisplayText: c.URLDisplayText,
	}
	if c.Images != nil {
		refs := make([]valueobjects.ImageRef, 0, len(*c.Images))
		for _, img := range *c.Images {
			ref, err := valueobjects.NewImageRef(img.Key, img.URL)
			if err != nil {
				return pkgerrors.NewValidationError("image key cannot be empty")
			}
			refs = append(refs, ref)
		}
		patch.Images = &refs
	}

	w := h.registry.GetOrCreate(c.ProjectID, c.UserID)
	return w.UpdateNote(ctx, noteID, patch)
}

// DeleteNoteHandler handles DeleteNoteCommand
type DeleteNoteHandler struct {
	registry *services.WorkspaceRegistry
	logger   *zap.Logger
}

// NewDeleteNoteHandler creates the handler
func NewDeleteNoteHandler(registry *services.WorkspaceRegistry, logger *zap.Logger) *DeleteNoteHandler {
	return &DeleteNoteHandler{registry: registry, logger: logger}
}

// Handle deletes the note, cascading or promoting children
func (h *DeleteNoteHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(*commands.DeleteNoteCommand)
	if !ok {
		return pkgerrors.NewInternalError("unexpected command type for DeleteNoteHandler")
	}

	noteID, err := valueobjects.NewNoteIDFromString(c.NoteID)
	if err != nil {
		return pkgerrors.NewValidationError("note ID must be a valid UUID")
	}

	w := h.registry.GetOrCreate(c.ProjectID, c.UserID)
	if err := w.DeleteNote(ctx, noteID, c.Cascade); err != nil {
		return err
	}

	h.logger.Debug("note deleted",
		zap.String("project_id", c.ProjectID),
		zap.String("note_id", c.NoteID),
		zap.Bool("cascade", c.Cascade))
	return nil
}

// MoveNoteHandler handles MoveNoteCommand
type MoveNoteHandler struct {
	registry *services.WorkspaceRegistry
	logger   *zap.Logger
}

// NewMoveNoteHandler creates the handler
func NewMoveNoteHandler(registry *services.WorkspaceRegistry, logger *zap.Logger) *MoveNoteHandler {
	return &MoveNoteHandler{registry: registry, logger: logger}
}

// Handle reparents the note under its new parent
func (h *MoveNoteHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(*commands.MoveNoteCommand)
	if !ok {
		return pkgerrors.NewInternalError("unexpected command type for MoveNoteHandler")
	}

	noteID, err := valueobjects.NewNoteIDFromString(c.NoteID)
	if err != nil {
		return pkgerrors.NewValidationError("note ID must be a valid UUID")
	}
	targetID, err := parseOptionalID(c.TargetParentID)
	if err != nil {
		return pkgerrors.NewValidationError("target parent ID must be a valid UUID")
	}

	w := h.registry.GetOrCreate(c.ProjectID, c.UserID)
	return w.MoveNote(ctx, noteID, targetID, c.Position, c.GestureToken)
}

// UndoMoveHandler handles UndoMoveCommand
type UndoMoveHandler struct {
	registry *services.WorkspaceRegistry
	logger   *zap.Logger
}

// NewUndoMoveHandler creates the handler
func NewUndoMoveHandler(registry *services.WorkspaceRegistry, logger *zap.Logger) *UndoMoveHandler {
	return &UndoMoveHandler{registry: registry, logger: logger}
}

// Handle reverses the most recent move and records what was undone
func (h *UndoMoveHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(*commands.UndoMoveCommand)
	if !ok {
		return pkgerrors.NewInternalError("unexpected command type for UndoMoveHandler")
	}

	w := h.registry.GetOrCreate(c.ProjectID, c.UserID)
	record, err := w.UndoMove(ctx)
	if err != nil {
		return err
	}

	c.UndoneNoteID = record.NoteID.String()
	c.Description = record.Description
	return nil
}
