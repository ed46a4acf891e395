package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"outline-backend/application/ports"
	"outline-backend/application/transfer"
	"outline-backend/domain/config"
	"outline-backend/domain/core/aggregates"
	"outline-backend/domain/core/entities"
	"outline-backend/domain/core/valueobjects"
	"outline-backend/domain/events"
	pkgerrors "outline-backend/pkg/errors"
	"outline-backend/pkg/observability"
)

// publishTimeout bounds the fire-and-forget event publish so a slow bus
// cannot pile up goroutines.
const publishTimeout = 5 * time.Second

// Workspace is one user's editing session on one project. All mutations go
// through it: it clones the current outline, applies the change, validates,
// and swaps the clone in, so readers always see a consistent tree and a
// failed mutation leaves no trace.
//
// The workspace also owns the session state that lives alongside the tree:
// the undo stack, the expansion state, the drag-session tracker, the
// current selection, and the autosave scheduler.
type Workspace struct {
	projectID string
	ownerID   string
	cfg       *config.DomainConfig
	logger    *zap.Logger

	repo      ports.ProjectRepository
	publisher ports.EventPublisher
	notifier  ports.ChangeNotifier
	metrics   *observability.Metrics

	history   *MoveHistory
	expansion *ExpansionState
	gesture   *GestureTracker
	autosave  *AutosaveScheduler

	mu        sync.Mutex
	outline   *aggregates.Outline
	selection *valueobjects.NoteID
	meta      ports.ProjectMeta
}

// WorkspaceDeps carries the collaborators a workspace needs
type WorkspaceDeps struct {
	Repo      ports.ProjectRepository
	Publisher ports.EventPublisher
	Notifier  ports.ChangeNotifier
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

// NewWorkspace creates an empty workspace for a project
func NewWorkspace(projectID, ownerID string, cfg *config.DomainConfig, deps WorkspaceDeps) *Workspace {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &Workspace{
		projectID: projectID,
		ownerID:   ownerID,
		cfg:       cfg,
		logger:    logger.With(zap.String("project_id", projectID)),
		repo:      deps.Repo,
		publisher: deps.Publisher,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		history:   NewMoveHistory(cfg.UndoHistorySize),
		expansion: NewExpansionState(),
		gesture:   NewGestureTracker(cfg.DragSessionExpiry),
		outline:   aggregates.NewOutline(cfg),
		meta: ports.ProjectMeta{
			ProjectID: projectID,
			OwnerID:   ownerID,
		},
	}
	w.autosave = NewAutosaveScheduler(cfg.AutosaveDebounce, w.performSave, w.applyMeta, w.logger)
	return w
}

// ProjectID returns the project this workspace edits
func (w *Workspace) ProjectID() string { return w.projectID }

// Snapshot returns the current outline. Snapshots are immutable by
// convention: mutations swap in a fresh clone, never touch a tree a reader
// may hold.
func (w *Workspace) Snapshot() *aggregates.Outline {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.outline
}

// Meta returns the last stored project metadata
func (w *Workspace) Meta() ports.ProjectMeta {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.meta
}

// AddNote creates a note and selects it. A nil parent adds at root level.
func (w *Workspace) AddNote(ctx context.Context, parentID *valueobjects.NoteID, position *int) (valueobjects.NoteID, error) {
	var created valueobjects.NoteID
	err := w.mutate(ctx, "add", func(o *aggregates.Outline) error {
		note, err := o.AddNote(parentID, position)
		if err != nil {
			return err
		}
		created = note.ID()
		return nil
	})
	if err != nil {
		return valueobjects.NoteID{}, err
	}

	w.mu.Lock()
	w.selection = &created
	w.mu.Unlock()
	return created, nil
}

// UpdateNote merges a patch into a note's fields
func (w *Workspace) UpdateNote(ctx context.Context, id valueobjects.NoteID, patch entities.NotePatch) error {
	return w.mutate(ctx, "update", func(o *aggregates.Outline) error {
		return o.UpdateNote(id, patch)
	})
}

// DeleteNote removes a note, cascading or promoting its children
func (w *Workspace) DeleteNote(ctx context.Context, id valueobjects.NoteID, cascade bool) error {
	return w.mutate(ctx, "delete", func(o *aggregates.Outline) error {
		return o.DeleteNote(id, cascade)
	})
}

// MoveNote reparents a note. The gesture token ties the request to a drag
// session: when a session is active the move must present its token, and
// the token is consumed so a duplicate drop cannot apply twice. A move that
// presents a token when no session holds it is itself a duplicate drop and
// is rejected. Successful moves are pushed onto the undo stack.
func (w *Workspace) MoveNote(ctx context.Context, id valueobjects.NoteID, targetParentID *valueobjects.NoteID, position int, gestureToken string) error {
	if gestureToken != "" || w.gesture.Active() {
		if !w.gesture.TryConsume(gestureToken) {
			return pkgerrors.NewConflictError("move does not match the active drag session")
		}
	}

	var receipt *aggregates.MoveReceipt
	err := w.mutate(ctx, "move", func(o *aggregates.Outline) error {
		r, err := o.MoveNote(id, targetParentID, position)
		if err != nil {
			return err
		}
		receipt = r
		return nil
	})
	if err != nil {
		return err
	}

	w.history.Push(receipt)
	return nil
}

// UndoMove reverses the most recent recorded move. The record is consumed
// either way: if the note has since been deleted the record is dropped and
// the caller gets an error rather than a half-applied reversal.
func (w *Workspace) UndoMove(ctx context.Context) (*UndoRecord, error) {
	record, ok := w.history.Pop()
	if !ok {
		return nil, pkgerrors.NewNotFoundError("move to undo")
	}

	err := w.mutate(ctx, "undo", func(o *aggregates.Outline) error {
		if !o.HasNote(record.NoteID) {
			return pkgerrors.NewNotFoundError("note referenced by undo record")
		}
		target := record.FromParentID
		if target != nil && !o.HasNote(*target) {
			// The former parent was deleted since the move; place at root
			// rather than losing the undo entirely.
			w.logger.Warn("undo target parent gone, restoring at root",
				zap.String("note_id", record.NoteID.String()))
			target = nil
		}
		_, err := o.MoveNote(record.NoteID, target, record.FromPosition)
		return err
	})
	if err != nil {
		return nil, err
	}

	if w.metrics != nil {
		_ = w.metrics.CountUndo(ctx)
	}
	w.publishAsync([]events.DomainEvent{events.NewMoveUndone(record.NoteID, time.Now())})
	return record, nil
}

// CanUndo reports whether an undoable move exists
func (w *Workspace) CanUndo() bool { return w.history.CanUndo() }

// UndoDepth returns the number of undoable moves
func (w *Workspace) UndoDepth() int { return w.history.Depth() }

// UndoDescriptions returns the undo stack descriptions, most recent first
func (w *Workspace) UndoDescriptions() []string { return w.history.Descriptions() }

// Selection returns the selected note ID, nil when nothing is selected
func (w *Workspace) Selection() *valueobjects.NoteID {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.selection == nil {
		return nil
	}
	id := *w.selection
	return &id
}

// Select marks a note as selected
func (w *Workspace) Select(id valueobjects.NoteID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.outline.HasNote(id) {
		return pkgerrors.NewNotFoundError("note")
	}
	w.selection = &id
	return nil
}

// ClearSelection drops the selection
func (w *Workspace) ClearSelection() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.selection = nil
}

// Expansion returns the view expansion state
func (w *Workspace) Expansion() *ExpansionState { return w.expansion }

// ExpandAll unfolds every note
func (w *Workspace) ExpandAll() { w.expansion.ExpandAll(w.Snapshot()) }

// CollapseAll folds every note
func (w *Workspace) CollapseAll() { w.expansion.CollapseAll() }

// ExpandToLevel unfolds the tree to the given depth
func (w *Workspace) ExpandToLevel(level int) { w.expansion.ExpandToLevel(w.Snapshot(), level) }

// ExpandOneMore unfolds one level deeper
func (w *Workspace) ExpandOneMore() { w.expansion.ExpandOneMore(w.Snapshot()) }

// CollapseOne folds one level back up
func (w *Workspace) CollapseOne() { w.expansion.CollapseOne(w.Snapshot()) }

// ToggleExpanded flips one note's expansion
func (w *Workspace) ToggleExpanded(id valueobjects.NoteID) { w.expansion.Toggle(id) }

// BeginDrag starts a drag session and returns its token
func (w *Workspace) BeginDrag() string { return w.gesture.Begin() }

// EndDrag cancels a drag session without a drop
func (w *Workspace) EndDrag(token string) { w.gesture.End(token) }

// Dirty reports whether unsaved changes exist
func (w *Workspace) Dirty() bool { return w.autosave.Dirty() }

// Save persists immediately, bypassing the debounce
func (w *Workspace) Save(ctx context.Context) (*ports.ProjectMeta, error) {
	return w.autosave.SaveNow(ctx)
}

// Load replaces the working copy with the stored project. Session state
// that belonged to the old tree (undo stack, expansion, selection, dirty
// flag) is reset.
func (w *Workspace) Load(ctx context.Context) error {
	doc, meta, err := w.repo.Load(ctx, w.ownerID, w.projectID)
	if err != nil {
		return err
	}

	outline, err := transfer.ToOutline(doc, w.cfg)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.outline = outline
	w.selection = nil
	if meta != nil {
		w.meta = *meta
	}
	w.mu.Unlock()

	w.history.Clear()
	w.expansion.CollapseAll()
	w.expansion.Recalculate(outline)
	w.autosave.Reset()

	w.publishAsync([]events.DomainEvent{
		events.NewOutlineLoaded(w.projectID, outline.NoteCount(), time.Now()),
	})
	w.logger.Info("project loaded", zap.Int("note_count", outline.NoteCount()))
	return nil
}

// ExportDocument serializes the current tree
func (w *Workspace) ExportDocument() *transfer.Document {
	return transfer.Export(w.Snapshot())
}

// ImportDocument replaces the working copy with an imported document. Notes
// get fresh IDs and image references are dropped; the session state resets
// as on load, but the result is dirty and will autosave.
func (w *Workspace) ImportDocument(ctx context.Context, doc *transfer.Document) error {
	outline, err := transfer.Import(doc, w.cfg)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.outline = outline
	w.selection = nil
	w.mu.Unlock()

	w.history.Clear()
	w.expansion.CollapseAll()
	w.expansion.Recalculate(outline)
	w.autosave.MarkDirty()

	w.logger.Info("document imported", zap.Int("note_count", outline.NoteCount()))
	return nil
}

// Close stops the autosave scheduler without a final flush
func (w *Workspace) Close() {
	w.autosave.Close()
}

// mutate runs one change as clone-apply-validate-swap. Readers holding the
// previous snapshot are unaffected, and any error leaves the workspace on
// the old tree.
func (w *Workspace) mutate(ctx context.Context, kind string, fn func(*aggregates.Outline) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	next := w.outline.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		w.logger.Error("mutation produced an invalid tree, discarding", zap.String("kind", kind), zap.Error(err))
		return err
	}

	evts := next.GetUncommittedEvents()
	next.MarkEventsAsCommitted()
	w.outline = next

	if w.selection != nil && !next.HasNote(*w.selection) {
		w.selection = nil
	}

	w.expansion.Recalculate(next)
	w.history.Prune(next.HasNote)
	w.autosave.MarkDirty()

	if w.metrics != nil {
		_ = w.metrics.CountMutation(ctx, kind)
	}
	w.publishAsync(evts)
	return nil
}

// performSave is the autosave SaveFunc: snapshot, serialize, store
func (w *Workspace) performSave(ctx context.Context, sequence uint64) (*ports.ProjectMeta, error) {
	w.mu.Lock()
	snapshot := w.outline
	meta := w.meta
	w.mu.Unlock()

	meta.Sequence = sequence
	meta.NoteCount = snapshot.NoteCount()
	meta.UpdatedAt = time.Now()

	doc := transfer.Export(snapshot)

	start := time.Now()
	stored, err := w.repo.Save(ctx, meta, doc)
	if w.metrics != nil {
		_ = w.metrics.RecordSaveLatency(ctx, time.Since(start))
	}
	if err != nil {
		if w.metrics != nil {
			_ = w.metrics.CountSaveFailure(ctx)
		}
		w.logger.Warn("save failed", zap.Uint64("sequence", sequence), zap.Error(err))
		return nil, err
	}

	w.publishAsync([]events.DomainEvent{
		events.NewOutlineSaved(w.projectID, meta.NoteCount, sequence, time.Now()),
	})
	return stored, nil
}

// applyMeta adopts the authoritative metadata from an accepted save
func (w *Workspace) applyMeta(meta *ports.ProjectMeta) {
	w.mu.Lock()
	w.meta = *meta
	w.mu.Unlock()

	if w.notifier != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			defer cancel()
			if err := w.notifier.NotifyOutlineChanged(ctx, w.projectID, meta.Sequence); err != nil {
				w.logger.Debug("change notification failed", zap.Error(err))
			}
		}()
	}
}

// publishAsync sends domain events without blocking the mutation path
func (w *Workspace) publishAsync(evts []events.DomainEvent) {
	if w.publisher == nil || len(evts) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := w.publisher.PublishBatch(ctx, evts); err != nil {
			w.logger.Warn("event publish failed", zap.Int("count", len(evts)), zap.Error(err))
		}
	}()
}
