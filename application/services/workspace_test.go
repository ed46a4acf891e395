package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outline-backend/application/ports"
	"outline-backend/application/transfer"
	"outline-backend/domain/config"
	"outline-backend/domain/core/entities"
	"outline-backend/domain/core/valueobjects"
	"outline-backend/domain/events"
)

// fakeRepo stores documents in memory and counts saves
type fakeRepo struct {
	mu        sync.Mutex
	docs      map[string]*transfer.Document
	metas     map[string]*ports.ProjectMeta
	saveCount int
	failSave  bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		docs:  make(map[string]*transfer.Document),
		metas: make(map[string]*ports.ProjectMeta),
	}
}

func (r *fakeRepo) Save(ctx context.Context, meta ports.ProjectMeta, doc *transfer.Document) (*ports.ProjectMeta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSave {
		return nil, errors.New("store unavailable")
	}
	r.saveCount++
	stored := meta
	if stored.Name == "" {
		stored.Name = "Untitled project"
	}
	r.docs[meta.ProjectID] = doc
	r.metas[meta.ProjectID] = &stored
	return &stored, nil
}

func (r *fakeRepo) Load(ctx context.Context, ownerID, projectID string) (*transfer.Document, *ports.ProjectMeta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[projectID]
	if !ok {
		return nil, nil, errors.New("project not found")
	}
	return doc, r.metas[projectID], nil
}

func (r *fakeRepo) ListByOwner(ctx context.Context, ownerID string) ([]*ports.ProjectMeta, error) {
	return nil, nil
}

func (r *fakeRepo) Delete(ctx context.Context, ownerID, projectID string) error {
	return nil
}

func (r *fakeRepo) saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveCount
}

// fakePublisher collects published events
type fakePublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (p *fakePublisher) Publish(ctx context.Context, e events.DomainEvent) error {
	return p.PublishBatch(ctx, []events.DomainEvent{e})
}

func (p *fakePublisher) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evts...)
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.GetEventType()
	}
	return out
}

func testWorkspace(t *testing.T) (*Workspace, *fakeRepo, *fakePublisher) {
	t.Helper()
	cfg := config.DefaultDomainConfig()
	cfg.AutosaveDebounce = 10 * time.Millisecond
	repo := newFakeRepo()
	pub := &fakePublisher{}
	w := NewWorkspace("proj-1", "user-1", cfg, WorkspaceDeps{
		Repo:      repo,
		Publisher: pub,
	})
	t.Cleanup(w.Close)
	return w, repo, pub
}

func TestWorkspaceMutations(t *testing.T) {
	ctx := context.Background()

	t.Run("add selects the new note and marks dirty", func(t *testing.T) {
		w, _, _ := testWorkspace(t)

		id, err := w.AddNote(ctx, nil, nil)
		require.NoError(t, err)

		require.NotNil(t, w.Selection())
		assert.True(t, w.Selection().Equals(id))
		assert.True(t, w.Dirty())
	})

	t.Run("failed mutation leaves the previous tree in place", func(t *testing.T) {
		w, _, _ := testWorkspace(t)
		id, err := w.AddNote(ctx, nil, nil)
		require.NoError(t, err)
		before := w.Snapshot()

		ghost := valueobjects.NewNoteID()
		err = w.MoveNote(ctx, id, &ghost, 0, "")
		require.Error(t, err)

		assert.Same(t, before, w.Snapshot(), "failed mutations must not swap the snapshot")
	})

	t.Run("deleting the selected note clears the selection", func(t *testing.T) {
		w, _, _ := testWorkspace(t)
		id, err := w.AddNote(ctx, nil, nil)
		require.NoError(t, err)
		require.NotNil(t, w.Selection())

		require.NoError(t, w.DeleteNote(ctx, id, true))
		assert.Nil(t, w.Selection())
	})

	t.Run("update is reflected in the next snapshot", func(t *testing.T) {
		w, _, _ := testWorkspace(t)
		id, err := w.AddNote(ctx, nil, nil)
		require.NoError(t, err)

		content := "hello"
		require.NoError(t, w.UpdateNote(ctx, id, entities.NotePatch{Content: &content}))

		note, err := w.Snapshot().Note(id)
		require.NoError(t, err)
		assert.Equal(t, "hello", note.Content())
	})
}

func TestWorkspaceMoveAndUndo(t *testing.T) {
	ctx := context.Background()

	t.Run("move then undo restores the original shape", func(t *testing.T) {
		w, _, _ := testWorkspace(t)
		a, err := w.AddNote(ctx, nil, nil)
		require.NoError(t, err)
		b, err := w.AddNote(ctx, nil, nil)
		require.NoError(t, err)

		require.NoError(t, w.MoveNote(ctx, b, &a, 0, ""))
		require.True(t, w.CanUndo())
		assert.Equal(t, 1, w.UndoDepth())

		record, err := w.UndoMove(ctx)
		require.NoError(t, err)
		assert.True(t, record.NoteID.Equals(b))

		roots := w.Snapshot().Roots()
		require.Len(t, roots, 2)
		assert.True(t, roots[1].Equals(b))
		assert.False(t, w.CanUndo(), "undo must not record a new undoable move")
	})

	t.Run("undo with empty history fails", func(t *testing.T) {
		w, _, _ := testWorkspace(t)
		_, err := w.UndoMove(ctx)
		assert.Error(t, err)
	})

	t.Run("records for deleted notes are pruned", func(t *testing.T) {
		w, _, _ := testWorkspace(t)
		a, err := w.AddNote(ctx, nil, nil)
		require.NoError(t, err)
		b, err := w.AddNote(ctx, nil, nil)
		require.NoError(t, err)

		require.NoError(t, w.MoveNote(ctx, b, &a, 0, ""))
		require.True(t, w.CanUndo())

		require.NoError(t, w.DeleteNote(ctx, b, true))
		assert.False(t, w.CanUndo(), "undo stack must drop records for deleted notes")
	})

	t.Run("undo falls back to root when the former parent is gone", func(t *testing.T) {
		w, _, _ := testWorkspace(t)
		a, err := w.AddNote(ctx, nil, nil)
		require.NoError(t, err)
		b, err := w.AddNote(ctx, &a, nil)
		require.NoError(t, err)

		require.NoError(t, w.MoveNote(ctx, b, nil, 1, ""))
		require.NoError(t, w.DeleteNote(ctx, a, true))
		require.True(t, w.CanUndo())

		record, err := w.UndoMove(ctx)
		require.NoError(t, err)
		assert.True(t, record.NoteID.Equals(b))

		roots := w.Snapshot().Roots()
		require.Len(t, roots, 1)
		assert.True(t, roots[0].Equals(b), "the note lands at root when its old parent is gone")
	})

	t.Run("self-drop records nothing", func(t *testing.T) {
		w, _, _ := testWorkspace(t)
		a, err := w.AddNote(ctx, nil, nil)
		require.NoError(t, err)

		require.NoError(t, w.MoveNote(ctx, a, &a, 0, ""))
		assert.False(t, w.CanUndo())
	})
}

func TestWorkspaceDragGesture(t *testing.T) {
	ctx := context.Background()

	t.Run("moves during a drag require the session token", func(t *testing.T) {
		w, _, _ := testWorkspace(t)
		a, err := w.AddNote(ctx, nil, nil)
		require.NoError(t, err)
		b, err := w.AddNote(ctx, nil, nil)
		require.NoError(t, err)

		token := w.BeginDrag()

		err = w.MoveNote(ctx, b, &a, 0, "wrong-token")
		require.Error(t, err)

		require.NoError(t, w.MoveNote(ctx, b, &a, 0, token))
	})

	t.Run("a consumed token cannot apply a second drop", func(t *testing.T) {
		w, _, _ := testWorkspace(t)
		a, err := w.AddNote(ctx, nil, nil)
		require.NoError(t, err)
		b, err := w.AddNote(ctx, nil, nil)
		require.NoError(t, err)
		c, err := w.AddNote(ctx, nil, nil)
		require.NoError(t, err)

		token := w.BeginDrag()
		require.NoError(t, w.MoveNote(ctx, c, &a, 0, token))

		err = w.MoveNote(ctx, c, &b, 0, token)
		require.Error(t, err, "a second drop of the same drag must be rejected")

		assert.Equal(t, 1, w.UndoDepth(), "the duplicate must not add an undo record")
		parent, ok := w.Snapshot().ParentOf(c)
		require.True(t, ok)
		require.NotNil(t, parent)
		assert.True(t, parent.Equals(a), "the duplicate must not change the first drop's result")
	})

	t.Run("no active drag means no token needed", func(t *testing.T) {
		w, _, _ := testWorkspace(t)
		a, err := w.AddNote(ctx, nil, nil)
		require.NoError(t, err)
		b, err := w.AddNote(ctx, nil, nil)
		require.NoError(t, err)

		require.NoError(t, w.MoveNote(ctx, b, &a, 0, ""))
	})

	t.Run("cancelled drag releases the guard", func(t *testing.T) {
		w, _, _ := testWorkspace(t)
		a, err := w.AddNote(ctx, nil, nil)
		require.NoError(t, err)
		b, err := w.AddNote(ctx, nil, nil)
		require.NoError(t, err)

		token := w.BeginDrag()
		w.EndDrag(token)

		require.NoError(t, w.MoveNote(ctx, b, &a, 0, ""))
	})
}

func TestWorkspaceSaveAndLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("autosave flushes after the debounce", func(t *testing.T) {
		w, repo, _ := testWorkspace(t)
		_, err := w.AddNote(ctx, nil, nil)
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return repo.saves() >= 1 && !w.Dirty()
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("manual save adopts the corrected metadata", func(t *testing.T) {
		w, _, _ := testWorkspace(t)
		_, err := w.AddNote(ctx, nil, nil)
		require.NoError(t, err)

		meta, err := w.Save(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Untitled project", meta.Name, "store-corrected fields must come back")

		require.Eventually(t, func() bool {
			return w.Meta().Name == "Untitled project"
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("load resets session state", func(t *testing.T) {
		w, _, _ := testWorkspace(t)
		a, err := w.AddNote(ctx, nil, nil)
		require.NoError(t, err)
		b, err := w.AddNote(ctx, nil, nil)
		require.NoError(t, err)
		require.NoError(t, w.MoveNote(ctx, b, &a, 0, ""))
		_, err = w.Save(ctx)
		require.NoError(t, err)

		require.NoError(t, w.Load(ctx))

		assert.False(t, w.CanUndo(), "load must clear the undo stack")
		assert.Nil(t, w.Selection())
		assert.False(t, w.Dirty())
		assert.Equal(t, 2, w.Snapshot().NoteCount())
	})

	t.Run("load failure leaves the workspace untouched", func(t *testing.T) {
		w, _, _ := testWorkspace(t)
		_, err := w.AddNote(ctx, nil, nil)
		require.NoError(t, err)
		before := w.Snapshot()

		// Nothing stored yet, so the load fails.
		require.Error(t, w.Load(ctx))
		assert.Same(t, before, w.Snapshot())
	})
}

func TestWorkspaceImportExport(t *testing.T) {
	ctx := context.Background()
	w, _, _ := testWorkspace(t)

	id, err := w.AddNote(ctx, nil, nil)
	require.NoError(t, err)
	content := "exported"
	require.NoError(t, w.UpdateNote(ctx, id, entities.NotePatch{Content: &content}))

	doc := w.ExportDocument()
	require.Len(t, doc.Notes, 1)

	other, _, _ := testWorkspace(t)
	require.NoError(t, other.ImportDocument(ctx, doc))

	assert.Equal(t, 1, other.Snapshot().NoteCount())
	assert.False(t, other.Snapshot().HasNote(id), "import must mint fresh IDs")
	assert.True(t, other.Dirty(), "an import is an unsaved change")
}

func TestWorkspacePublishesEvents(t *testing.T) {
	ctx := context.Background()
	w, _, pub := testWorkspace(t)

	_, err := w.AddNote(ctx, nil, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		for _, typ := range pub.types() {
			if typ == "note.added" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestWorkspaceRegistry(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	reg := NewWorkspaceRegistry(cfg, WorkspaceDeps{Repo: newFakeRepo()})
	defer reg.Close()

	w1 := reg.GetOrCreate("p1", "u1")
	w2 := reg.GetOrCreate("p1", "u1")
	assert.Same(t, w1, w2, "same project must share a workspace")

	w3 := reg.GetOrCreate("p2", "u1")
	assert.NotSame(t, w1, w3)

	got, ok := reg.Get("p1")
	require.True(t, ok)
	assert.Same(t, w1, got)

	reg.Remove("p1")
	_, ok = reg.Get("p1")
	assert.False(t, ok)
}
