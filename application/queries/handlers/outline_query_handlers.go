package handlers

import (
	"context"

	"go.uber.org/zap"

	"outline-backend/application/ports"
	"outline-backend/application/queries"
	"outline-backend/application/queries/bus"
	"outline-backend/application/services"
	"outline-backend/domain/core/aggregates"
	"outline-backend/domain/core/valueobjects"
	pkgerrors "outline-backend/pkg/errors"
	"outline-backend/pkg/utils"
)

// GetOutlineHandler handles GetOutlineQuery
type GetOutlineHandler struct {
	registry *services.WorkspaceRegistry
	logger   *zap.Logger
}

// NewGetOutlineHandler creates the handler
func NewGetOutlineHandler(registry *services.WorkspaceRegistry, logger *zap.Logger) *GetOutlineHandler {
	return &GetOutlineHandler{registry: registry, logger: logger}
}

// Handle renders the workspace tree into a view
func (h *GetOutlineHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(*queries.GetOutlineQuery)
	if !ok {
		return nil, pkgerrors.NewInternalError("unexpected query type for GetOutlineHandler")
	}

	w := h.registry.GetOrCreate(q.ProjectID, q.UserID)
	snapshot := w.Snapshot()
	expansion := w.Expansion()
	meta := w.Meta()

	var selected *string
	if sel := w.Selection(); sel != nil {
		s := sel.String()
		selected = &s
	}

	var undoLabel string
	if descriptions := w.UndoDescriptions(); len(descriptions) > 0 {
		undoLabel = descriptions[0]
	}

	return &queries.OutlineView{
		ProjectID:    q.ProjectID,
		Name:         meta.Name,
		NoteCount:    snapshot.NoteCount(),
		Dirty:        w.Dirty(),
		Sequence:     meta.Sequence,
		SelectedID:   selected,
		CurrentLevel: expansion.CurrentLevel(),
		MaxDepth:     expansion.MaxDepth(),
		CanUndo:      w.CanUndo(),
		UndoLabel:    undoLabel,
		Notes:        renderLevel(snapshot, expansion, nil),
	}, nil
}

// renderLevel builds the nested note views for one sibling list
func renderLevel(o *aggregates.Outline, expansion *services.ExpansionState, parentID *valueobjects.NoteID) []queries.NoteView {
	ids := o.ChildrenOf(parentID)
	views := make([]queries.NoteView, 0, len(ids))
	for _, id := range ids {
		note, err := o.Note(id)
		if err != nil {
			continue
		}

		var timeSet *string
		if ts := note.TimeSet(); ts != nil {
			s := utils.FormatRFC3339(*ts)
			timeSet = &s
		}

		images := make([]queries.ImageView, 0, len(note.Images()))
		for _, ref := range note.Images() {
			images = append(images, queries.ImageView{Key: ref.Key(), URL: ref.URL()})
		}

		childID := id
		views = append(views, queries.NoteView{
			ID:             id.String(),
			Content:        note.Content(),
			Position:       note.Position(),
			IsDiscussion:   note.IsDiscussion(),
			TimeSet:        timeSet,
			YoutubeURL:     note.YoutubeURL(),
			URL:            note.URL(),
			URLDisplayText: note.URLDisplayText(),
			Images:         images,
			Expanded:       expansion.IsExpanded(id),
			Children:       renderLevel(o, expansion, &childID),
		})
	}
	return views
}

// GetUndoStatusHandler handles GetUndoStatusQuery
type GetUndoStatusHandler struct {
	registry *services.WorkspaceRegistry
	logger   *zap.Logger
}

// NewGetUndoStatusHandler creates the handler
func NewGetUndoStatusHandler(registry *services.WorkspaceRegistry, logger *zap.Logger) *GetUndoStatusHandler {
	return &GetUndoStatusHandler{registry: registry, logger: logger}
}

// Handle reports the undo stack state
func (h *GetUndoStatusHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(*queries.GetUndoStatusQuery)
	if !ok {
		return nil, pkgerrors.NewInternalError("unexpected query type for GetUndoStatusHandler")
	}

	w := h.registry.GetOrCreate(q.ProjectID, q.UserID)
	return &queries.UndoStatusView{
		CanUndo:      w.CanUndo(),
		Depth:        w.UndoDepth(),
		Descriptions: w.UndoDescriptions(),
	}, nil
}

// ExportDocumentHandler handles ExportDocumentQuery
type ExportDocumentHandler struct {
	registry *services.WorkspaceRegistry
	logger   *zap.Logger
}

// NewExportDocumentHandler creates the handler
func NewExportDocumentHandler(registry *services.WorkspaceRegistry, logger *zap.Logger) *ExportDocumentHandler {
	return &ExportDocumentHandler{registry: registry, logger: logger}
}

// Handle serializes the current tree
func (h *ExportDocumentHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(*queries.ExportDocumentQuery)
	if !ok {
		return nil, pkgerrors.NewInternalError("unexpected query type for ExportDocumentHandler")
	}

	w := h.registry.GetOrCreate(q.ProjectID, q.UserID)
	return w.ExportDocument(), nil
}

// ListProjectsHandler handles ListProjectsQuery
type ListProjectsHandler struct {
	repo   ports.ProjectRepository
	logger *zap.Logger
}

// NewListProjectsHandler creates the handler
func NewListProjectsHandler(repo ports.ProjectRepository, logger *zap.Logger) *ListProjectsHandler {
	return &ListProjectsHandler{repo: repo, logger: logger}
}

// Handle lists the user's projects from the store
func (h *ListProjectsHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(*queries.ListProjectsQuery)
	if !ok {
		return nil, pkgerrors.NewInternalError("unexpected query type for ListProjectsHandler")
	}

	metas, err := h.repo.ListByOwner(ctx, q.UserID)
	if err != nil {
		return nil, err
	}

	items := make([]queries.ProjectListItem, 0, len(metas))
	for _, m := range metas {
		items = append(items, queries.ProjectListItem{
			ProjectID:   m.ProjectID,
			Name:        m.Name,
			Description: m.Description,
			NoteCount:   m.NoteCount,
			UpdatedAt:   utils.FormatRFC3339(m.UpdatedAt),
		})
	}
	return items, nil
}
