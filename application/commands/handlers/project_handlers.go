package handlers

import (
	"context"

	"go.uber.org/zap"

	"outline-backend/application/commands"
	"outline-backend/application/commands/bus"
	"outline-backend/application/ports"
	"outline-backend/application/services"
	pkgerrors "outline-backend/pkg/errors"
)

// SaveProjectHandler handles SaveProjectCommand
type SaveProjectHandler struct {
	registry *services.WorkspaceRegistry
	logger   *zap.Logger
}

// NewSaveProjectHandler creates the handler
func NewSaveProjectHandler(registry *services.WorkspaceRegistry, logger *zap.Logger) *SaveProjectHandler {
	return &SaveProjectHandler{registry: registry, logger: logger}
}

// Handle persists the project immediately
func (h *SaveProjectHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(*commands.SaveProjectCommand)
	if !ok {
		return pkgerrors.NewInternalError("unexpected command type for SaveProjectHandler")
	}

	w := h.registry.GetOrCreate(c.ProjectID, c.UserID)
	meta, err := w.Save(ctx)
	if err != nil {
		return err
	}
	if meta != nil {
		c.Sequence = meta.Sequence
	}

	h.logger.Info("project saved",
		zap.String("project_id", c.ProjectID),
		zap.Uint64("sequence", c.Sequence))
	return nil
}

// LoadProjectHandler handles LoadProjectCommand
type LoadProjectHandler struct {
	registry *services.WorkspaceRegistry
	logger   *zap.Logger
}

// NewLoadProjectHandler creates the handler
func NewLoadProjectHandler(registry *services.WorkspaceRegistry, logger *zap.Logger) *LoadProjectHandler {
	return &LoadProjectHandler{registry: registry, logger: logger}
}

// Handle replaces the workspace tree with the stored project
func (h *LoadProjectHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(*commands.LoadProjectCommand)
	if !ok {
		return pkgerrors.NewInternalError("unexpected command type for LoadProjectHandler")
	}

	w := h.registry.GetOrCreate(c.ProjectID, c.UserID)
	return w.Load(ctx)
}

// ImportDocumentHandler handles ImportDocumentCommand
type ImportDocumentHandler struct {
	registry *services.WorkspaceRegistry
	logger   *zap.Logger
}

// NewImportDocumentHandler creates the handler
func NewImportDocumentHandler(registry *services.WorkspaceRegistry, logger *zap.Logger) *ImportDocumentHandler {
	return &ImportDocumentHandler{registry: registry, logger: logger}
}

// Handle replaces the workspace tree with the imported document
func (h *ImportDocumentHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(*commands.ImportDocumentCommand)
	if !ok {
		return pkgerrors.NewInternalError("unexpected command type for ImportDocumentHandler")
	}

	w := h.registry.GetOrCreate(c.ProjectID, c.UserID)
	if err := w.ImportDocument(ctx, c.Document); err != nil {
		return err
	}

	h.logger.Info("document imported",
		zap.String("project_id", c.ProjectID),
		zap.Int("note_count", len(c.Document.Notes)))
	return nil
}

// DeleteProjectHandler handles DeleteProjectCommand
type DeleteProjectHandler struct {
	registry *services.WorkspaceRegistry
	repo     ports.ProjectRepository
	logger   *zap.Logger
}

// NewDeleteProjectHandler creates the handler
func NewDeleteProjectHandler(registry *services.WorkspaceRegistry, repo ports.ProjectRepository, logger *zap.Logger) *DeleteProjectHandler {
	return &DeleteProjectHandler{registry: registry, repo: repo, logger: logger}
}

// Handle closes the project's workspace and removes the stored record.
// The workspace is evicted first so a concurrent autosave cannot
// resurrect the project after the delete.
func (h *DeleteProjectHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(*commands.DeleteProjectCommand)
	if !ok {
		return pkgerrors.NewInternalError("unexpected command type for DeleteProjectHandler")
	}

	h.registry.Remove(c.ProjectID)
	if err := h.repo.Delete(ctx, c.UserID, c.ProjectID); err != nil {
		return err
	}

	h.logger.Info("project deleted", zap.String("project_id", c.ProjectID))
	return nil
}
